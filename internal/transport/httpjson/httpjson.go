// Package httpjson implements the generic HTTP/JSON remote transport: a
// customApi service backed by an arbitrary REST endpoint whose response
// envelope shape is not known in advance. tidwall/gjson and tidwall/sjson
// pick fields out of (and patch fields into) that arbitrary envelope
// without requiring a fixed Go struct for it.
package httpjson

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/utags/sync-core/internal/corelog"
	"github.com/utags/sync-core/internal/transport"
)

// EnvelopePaths configures where, within an arbitrary JSON response body,
// the bookmarks payload and its revision fields live. gjson/sjson path
// syntax (e.g. "result.data", "meta.version").
type EnvelopePaths struct {
	DataPath      string
	VersionPath   string
	TimestampPath string
}

func defaultPaths() EnvelopePaths {
	return EnvelopePaths{DataPath: "data", VersionPath: "version", TimestampPath: "timestamp"}
}

// Transport is the generic HTTP/JSON transport.Transport implementation.
type Transport struct {
	cfg    transport.Config
	client *http.Client
	base   string
	token  string
	paths  EnvelopePaths
}

// New constructs an httpjson transport using paths (or defaults when the
// zero value is passed). Init must be called before use.
func New(paths EnvelopePaths) *Transport {
	if paths == (EnvelopePaths{}) {
		paths = defaultPaths()
	}
	return &Transport{client: &http.Client{Timeout: 30 * time.Second}, paths: paths}
}

func (t *Transport) Init(ctx context.Context, cfg transport.Config) error {
	base := cfg.Target["url"]
	if base == "" {
		return &transport.TransportInitError{Transport: "httpjson", Err: fmt.Errorf("missing target url")}
	}
	t.cfg = cfg
	t.base = base
	t.token = cfg.Credentials["token"]

	status, err := t.GetAuthStatus(ctx)
	if err != nil {
		return &transport.TransportInitError{Transport: "httpjson", Err: err}
	}
	if status == transport.AuthUnauthenticated || status == transport.AuthError {
		return &transport.TransportInitError{Transport: "httpjson", Err: fmt.Errorf("auth probe returned %s", status)}
	}
	corelog.Debugf("httpjson[%s]: init ok (auth=%s)", cfg.ServiceID, status)
	return nil
}

func (t *Transport) GetConfig() transport.Config { return t.cfg }

func (t *Transport) authenticate(req *http.Request) {
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
}

func (t *Transport) do(ctx context.Context, method, url string, body []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	t.authenticate(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, b, nil
}

func (t *Transport) GetAuthStatus(ctx context.Context) (transport.AuthStatus, error) {
	resp, _, err := t.do(ctx, http.MethodGet, t.base, nil)
	if err != nil {
		return transport.AuthError, nil
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return transport.AuthUnauthenticated, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode == http.StatusNotFound:
		return transport.AuthAuthenticated, nil
	default:
		return transport.AuthError, nil
	}
}

func (t *Transport) remoteMetaFrom(body []byte) *transport.RemoteMeta {
	var meta transport.RemoteMeta
	found := false
	if v := gjson.GetBytes(body, t.paths.VersionPath); v.Exists() {
		s := v.String()
		meta.Version = &s
		found = true
	}
	if v := gjson.GetBytes(body, t.paths.TimestampPath); v.Exists() {
		n := v.Int()
		meta.Timestamp = &n
		found = true
	}
	if !found {
		return nil
	}
	return &meta
}

func (t *Transport) GetRemoteMetadata(ctx context.Context) (*transport.RemoteMeta, error) {
	resp, body, err := t.do(ctx, http.MethodGet, t.base, nil)
	if err != nil {
		return nil, &transport.NetworkError{Transport: "httpjson", Op: "get_remote_metadata", Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &transport.NetworkError{Transport: "httpjson", Op: "get_remote_metadata", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return t.remoteMetaFrom(body), nil
}

func (t *Transport) Download(ctx context.Context) (transport.Download, error) {
	resp, body, err := t.do(ctx, http.MethodGet, t.base, nil)
	if err != nil {
		return transport.Download{}, &transport.NetworkError{Transport: "httpjson", Op: "download", Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return transport.Download{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transport.Download{}, &transport.NetworkError{Transport: "httpjson", Op: "download", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	data := gjson.GetBytes(body, t.paths.DataPath)
	if !data.Exists() {
		return transport.Download{}, &transport.ParseError{Transport: "httpjson", Err: fmt.Errorf("response missing %q", t.paths.DataPath)}
	}
	raw := data.Raw
	return transport.Download{Data: &raw, RemoteMeta: t.remoteMetaFrom(body)}, nil
}

func (t *Transport) Upload(ctx context.Context, data string, expected *transport.RemoteMeta) (transport.RemoteMeta, error) {
	envelope, err := sjson.SetRaw("{}", t.paths.DataPath, data)
	if err != nil {
		return transport.RemoteMeta{}, err
	}
	if expected != nil && expected.Version != nil {
		envelope, err = sjson.Set(envelope, "expectedVersion", *expected.Version)
		if err != nil {
			return transport.RemoteMeta{}, err
		}
	}

	resp, body, err := t.do(ctx, http.MethodPut, t.base, []byte(envelope))
	if err != nil {
		return transport.RemoteMeta{}, &transport.NetworkError{Transport: "httpjson", Op: "upload", Err: err}
	}

	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed {
		return transport.RemoteMeta{}, &transport.UploadConflict{Transport: "httpjson", Expected: expected, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transport.RemoteMeta{}, &transport.NetworkError{Transport: "httpjson", Op: "upload", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if meta := t.remoteMetaFrom(body); meta != nil {
		return *meta, nil
	}
	return transport.RemoteMeta{}, nil
}

func (t *Transport) Destroy(ctx context.Context) error { return nil }
