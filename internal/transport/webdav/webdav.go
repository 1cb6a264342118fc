// Package webdav implements the WebDAV remote transport: a bookmarks
// payload stored as a single file on a WebDAV share, using HTTP's ETag as
// the optimistic-locking witness. No WebDAV client library appears in the
// retrieved example pack, so this talks WebDAV directly over net/http —
// PUT/GET/conditional headers are all the protocol needs here, and a
// dependency would only wrap that.
package webdav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/utags/sync-core/internal/corelog"
	"github.com/utags/sync-core/internal/transport"
)

// Transport is the WebDAV transport.Transport implementation.
type Transport struct {
	cfg    transport.Config
	client *http.Client
	url    string
	user   string
	pass   string
}

// New constructs a WebDAV transport. Init must be called before use.
func New() *Transport {
	return &Transport{client: &http.Client{Timeout: 30 * time.Second}}
}

func (t *Transport) Init(ctx context.Context, cfg transport.Config) error {
	url := cfg.Target["url"]
	if url == "" {
		return &transport.TransportInitError{Transport: "webdav", Err: fmt.Errorf("missing target url")}
	}
	t.cfg = cfg
	t.url = url
	t.user = cfg.Credentials["username"]
	t.pass = cfg.Credentials["password"]

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.url, nil)
	if err != nil {
		return &transport.TransportInitError{Transport: "webdav", Err: err}
	}
	t.authenticate(req)
	resp, err := t.client.Do(req)
	if err != nil {
		return &transport.TransportInitError{Transport: "webdav", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &transport.TransportInitError{Transport: "webdav", Err: fmt.Errorf("authentication rejected (status %d)", resp.StatusCode)}
	}
	corelog.Debugf("webdav[%s]: handshake ok (status %d)", cfg.ServiceID, resp.StatusCode)
	return nil
}

func (t *Transport) GetConfig() transport.Config { return t.cfg }

func (t *Transport) authenticate(req *http.Request) {
	if t.user != "" {
		req.SetBasicAuth(t.user, t.pass)
	}
}

func (t *Transport) GetAuthStatus(ctx context.Context) (transport.AuthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.url, nil)
	if err != nil {
		return transport.AuthUnknown, err
	}
	t.authenticate(req)
	resp, err := t.client.Do(req)
	if err != nil {
		return transport.AuthError, nil
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return transport.AuthUnauthenticated, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode == http.StatusNotFound:
		return transport.AuthAuthenticated, nil
	default:
		return transport.AuthError, nil
	}
}

func (t *Transport) GetRemoteMetadata(ctx context.Context) (*transport.RemoteMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.url, nil)
	if err != nil {
		return nil, err
	}
	t.authenticate(req)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &transport.NetworkError{Transport: "webdav", Op: "get_remote_metadata", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &transport.NetworkError{Transport: "webdav", Op: "get_remote_metadata", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return etagMeta(resp.Header.Get("ETag")), nil
}

func (t *Transport) Download(ctx context.Context) (transport.Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return transport.Download{}, err
	}
	t.authenticate(req)
	resp, err := t.client.Do(req)
	if err != nil {
		return transport.Download{}, &transport.NetworkError{Transport: "webdav", Op: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return transport.Download{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transport.Download{}, &transport.NetworkError{Transport: "webdav", Op: "download", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transport.Download{}, &transport.NetworkError{Transport: "webdav", Op: "download", Err: err}
	}
	data := string(body)
	return transport.Download{Data: &data, RemoteMeta: etagMeta(resp.Header.Get("ETag"))}, nil
}

func (t *Transport) Upload(ctx context.Context, data string, expected *transport.RemoteMeta) (transport.RemoteMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.url, bytes.NewReader([]byte(data)))
	if err != nil {
		return transport.RemoteMeta{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	t.authenticate(req)

	// WebDAV (unlike git/GitHub) has no content-addressed CAS primitive
	// beyond conditional headers: If-Match enforces the optimistic lock
	// when the caller has a prior witness, If-None-Match:* guards against
	// clobbering a resource that appeared concurrently when the caller
	// believes none exists yet.
	switch {
	case expected != nil && expected.SHA != nil:
		req.Header.Set("If-Match", quoteETag(*expected.SHA))
	case expected == nil:
		req.Header.Set("If-None-Match", "*")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return transport.RemoteMeta{}, &transport.NetworkError{Transport: "webdav", Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPreconditionFailed || resp.StatusCode == http.StatusConflict {
		return transport.RemoteMeta{}, &transport.UploadConflict{Transport: "webdav", Expected: expected, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transport.RemoteMeta{}, &transport.NetworkError{Transport: "webdav", Op: "upload", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	meta := etagMeta(resp.Header.Get("ETag"))
	if meta == nil {
		// Some servers don't return an ETag on PUT; fall back to a HEAD.
		fresh, err := t.GetRemoteMetadata(ctx)
		if err != nil || fresh == nil {
			return transport.RemoteMeta{}, nil
		}
		return *fresh, nil
	}
	return *meta, nil
}

func (t *Transport) Destroy(ctx context.Context) error { return nil }

func etagMeta(etag string) *transport.RemoteMeta {
	etag = strings.Trim(etag, `"`)
	if etag == "" {
		return nil
	}
	return &transport.RemoteMeta{SHA: &etag}
}

func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}
