// Package bridge implements the message-bridge transport: a concrete
// transport.Transport over a postMessage-style bidirectional channel with
// request/response correlation and per-request timeouts (spec.md §4.E).
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utags/sync-core/internal/corelog"
	"github.com/utags/sync-core/internal/transport"
)

const (
	sourceWebapp    = "webapp"
	sourceExtension = "extension"

	typePing               = "PING"
	typeGetAuthStatus      = "GET_AUTH_STATUS"
	typeGetRemoteMetadata  = "GET_REMOTE_METADATA"
	typeDownloadData       = "DOWNLOAD_DATA"
	typeUploadData         = "UPLOAD_DATA"

	pingTimeout    = 5 * time.Second
	requestTimeout = 30 * time.Second
)

// Outbound is a message sent from the webapp to the extension.
type Outbound struct {
	Source    string          `json:"source"`
	RequestID string          `json:"requestId"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Inbound is a message received from the extension.
type Inbound struct {
	Source    string          `json:"source"`
	RequestID string          `json:"requestId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Channel is the bidirectional postMessage-style channel the transport is
// layered on. A real host implements this over window.postMessage or an
// equivalent extension messaging API; tests use an in-process fake.
type Channel interface {
	Send(Outbound) error
}

type pending struct {
	resolve chan Inbound
	timer   *time.Timer
}

// Transport is the message-bridge transport.Transport implementation.
type Transport struct {
	channel Channel
	cfg     transport.Config

	mu        sync.Mutex
	pending   map[string]*pending
	destroyed bool
}

// New constructs a bridge transport over channel. Init must be called
// before use.
func New(channel Channel) *Transport {
	return &Transport{channel: channel, pending: make(map[string]*pending)}
}

// HandleMessage is called by the host whenever a message arrives from the
// extension. Messages whose Source doesn't match sourceExtension, or whose
// RequestID doesn't correspond to a known outstanding request, are ignored.
func (t *Transport) HandleMessage(msg Inbound) {
	if msg.Source != sourceExtension {
		return
	}

	t.mu.Lock()
	p, ok := t.pending[msg.RequestID]
	if ok {
		delete(t.pending, msg.RequestID)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	p.timer.Stop()
	p.resolve <- msg
}

// Init sends PING and waits (bounded by pingTimeout) for a PONG payload.
// Any other response, an error, or a timeout rejects Init.
func (t *Transport) Init(ctx context.Context, cfg transport.Config) error {
	t.cfg = cfg

	resp, err := t.request(ctx, typePing, nil, pingTimeout)
	if err != nil {
		return &transport.TransportInitError{Transport: "bridge", Err: err}
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Payload, &status); err != nil || status.Status != "PONG" {
		return &transport.TransportInitError{Transport: "bridge", Err: fmt.Errorf("unexpected handshake response: %s", resp.Payload)}
	}

	corelog.Debugf("bridge[%s]: handshake complete", cfg.ServiceID)
	return nil
}

func (t *Transport) GetConfig() transport.Config { return t.cfg }

func (t *Transport) GetAuthStatus(ctx context.Context) (transport.AuthStatus, error) {
	resp, err := t.request(ctx, typeGetAuthStatus, nil, requestTimeout)
	if err != nil {
		return transport.AuthUnknown, &transport.NetworkError{Transport: "bridge", Op: "get_auth_status", Err: err}
	}
	var status string
	if err := json.Unmarshal(resp.Payload, &status); err != nil {
		return transport.AuthUnknown, nil
	}
	return transport.AuthStatus(status), nil
}

func (t *Transport) GetRemoteMetadata(ctx context.Context) (*transport.RemoteMeta, error) {
	resp, err := t.request(ctx, typeGetRemoteMetadata, nil, requestTimeout)
	if err != nil {
		return nil, classify("bridge", "get_remote_metadata", err)
	}
	var body struct {
		Metadata *transport.RemoteMeta `json:"metadata"`
	}
	if err := json.Unmarshal(resp.Payload, &body); err != nil {
		return nil, &transport.ParseError{Transport: "bridge", Err: err}
	}
	return body.Metadata, nil
}

func (t *Transport) Download(ctx context.Context) (transport.Download, error) {
	resp, err := t.request(ctx, typeDownloadData, nil, requestTimeout)
	if err != nil {
		return transport.Download{}, classify("bridge", "download", err)
	}
	var body struct {
		Data       *string               `json:"data"`
		RemoteMeta *transport.RemoteMeta `json:"remoteMeta"`
	}
	if err := json.Unmarshal(resp.Payload, &body); err != nil {
		return transport.Download{}, &transport.ParseError{Transport: "bridge", Err: err}
	}
	return transport.Download{Data: body.Data, RemoteMeta: body.RemoteMeta}, nil
}

func (t *Transport) Upload(ctx context.Context, data string, expected *transport.RemoteMeta) (transport.RemoteMeta, error) {
	payload, err := json.Marshal(struct {
		Data     string                `json:"data"`
		Metadata *transport.RemoteMeta `json:"metadata,omitempty"`
	}{Data: data, Metadata: expected})
	if err != nil {
		return transport.RemoteMeta{}, err
	}

	resp, err := t.request(ctx, typeUploadData, payload, requestTimeout)
	if err != nil {
		return transport.RemoteMeta{}, classify("bridge", "upload", err)
	}
	var body struct {
		Metadata transport.RemoteMeta `json:"metadata"`
	}
	if err := json.Unmarshal(resp.Payload, &body); err != nil {
		return transport.RemoteMeta{}, &transport.ParseError{Transport: "bridge", Err: err}
	}
	return body.Metadata, nil
}

// Destroy cancels every pending timer and rejects every outstanding
// request with DestroyedError.
func (t *Transport) Destroy(ctx context.Context) error {
	t.mu.Lock()
	t.destroyed = true
	pending := t.pending
	t.pending = make(map[string]*pending)
	t.mu.Unlock()

	for id, p := range pending {
		p.timer.Stop()
		p.resolve <- Inbound{Source: sourceExtension, RequestID: id, Error: "__destroyed__"}
	}
	return nil
}

// request sends an outbound message of the given type and waits for its
// correlated response, bounded by timeout.
func (t *Transport) request(ctx context.Context, typ string, payload json.RawMessage, timeout time.Duration) (Inbound, error) {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return Inbound{}, &transport.DestroyedError{Transport: "bridge"}
	}

	id := uuid.NewString()
	ch := make(chan Inbound, 1)
	p := &pending{resolve: ch}
	p.timer = time.AfterFunc(timeout, func() {
		t.mu.Lock()
		_, ok := t.pending[id]
		if ok {
			delete(t.pending, id)
		}
		t.mu.Unlock()
		if ok {
			ch <- Inbound{Error: "__timeout__"}
		}
	})
	t.pending[id] = p
	t.mu.Unlock()

	if err := t.channel.Send(Outbound{Source: sourceWebapp, RequestID: id, Type: typ, Payload: payload}); err != nil {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		p.timer.Stop()
		return Inbound{}, err
	}

	select {
	case resp := <-ch:
		switch resp.Error {
		case "":
			return resp, nil
		case "__timeout__":
			return Inbound{}, fmt.Errorf("request %s timed out after %s", typ, timeout)
		case "__destroyed__":
			return Inbound{}, &transport.DestroyedError{Transport: "bridge"}
		default:
			return Inbound{}, remoteError(resp.Error)
		}
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		p.timer.Stop()
		return Inbound{}, ctx.Err()
	}
}

// remoteError converts a remote-signaled error string to a Go error,
// re-raising "Conflict:"-prefixed strings as transport.UploadConflict.
func remoteError(msg string) error {
	if strings.HasPrefix(msg, "Conflict:") {
		return &transport.UploadConflict{Transport: "bridge", Detail: strings.TrimSpace(strings.TrimPrefix(msg, "Conflict:"))}
	}
	return fmt.Errorf("bridge: remote error: %s", msg)
}

func classify(name, op string, err error) error {
	var conflict *transport.UploadConflict
	if ok := asUploadConflict(err, &conflict); ok {
		return conflict
	}
	return &transport.NetworkError{Transport: name, Op: op, Err: err}
}

func asUploadConflict(err error, target **transport.UploadConflict) bool {
	if uc, ok := err.(*transport.UploadConflict); ok {
		*target = uc
		return true
	}
	return false
}
