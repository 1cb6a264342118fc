package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/utags/sync-core/internal/transport"
)

// fakeChannel is an in-process postMessage-style channel. Send delivers
// outbound messages to a handler that can reply synchronously or
// asynchronously through HandleMessage.
type fakeChannel struct {
	handle func(Outbound)
}

func (f *fakeChannel) Send(msg Outbound) error {
	f.handle(msg)
	return nil
}

func newPairedTransport(t *testing.T, handle func(Outbound) (json.RawMessage, string)) *Transport {
	t.Helper()
	var tr *Transport
	ch := &fakeChannel{}
	tr = New(ch)
	ch.handle = func(msg Outbound) {
		payload, errStr := handle(msg)
		go tr.HandleMessage(Inbound{Source: sourceExtension, RequestID: msg.RequestID, Payload: payload, Error: errStr})
	}
	return tr
}

func TestInitHandshake(t *testing.T) {
	tr := newPairedTransport(t, func(msg Outbound) (json.RawMessage, string) {
		if msg.Type != typePing {
			t.Fatalf("expected PING, got %s", msg.Type)
		}
		return json.RawMessage(`{"status":"PONG"}`), ""
	})

	if err := tr.Init(context.Background(), transport.Config{ServiceID: "svc1"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestInitHandshakeRejectsBadResponse(t *testing.T) {
	tr := newPairedTransport(t, func(msg Outbound) (json.RawMessage, string) {
		return json.RawMessage(`{"status":"NOPE"}`), ""
	})

	if err := tr.Init(context.Background(), transport.Config{}); err == nil {
		t.Fatal("expected Init to reject a non-PONG response")
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	tr := newPairedTransport(t, func(msg Outbound) (json.RawMessage, string) {
		switch msg.Type {
		case typePing:
			return json.RawMessage(`{"status":"PONG"}`), ""
		case typeDownloadData:
			return json.RawMessage(`{"data":"{\"u1\":{}}","remoteMeta":{"sha":"abc"}}`), ""
		}
		return nil, "unknown type"
	})

	ctx := context.Background()
	if err := tr.Init(ctx, transport.Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	dl, err := tr.Download(ctx)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if dl.Data == nil || *dl.Data != `{"u1":{}}` {
		t.Fatalf("unexpected data: %+v", dl.Data)
	}
	if dl.RemoteMeta == nil || dl.RemoteMeta.SHA == nil || *dl.RemoteMeta.SHA != "abc" {
		t.Fatalf("unexpected remote meta: %+v", dl.RemoteMeta)
	}
}

func TestUploadConflict(t *testing.T) {
	tr := newPairedTransport(t, func(msg Outbound) (json.RawMessage, string) {
		switch msg.Type {
		case typePing:
			return json.RawMessage(`{"status":"PONG"}`), ""
		case typeUploadData:
			return nil, "Conflict: remote has advanced"
		}
		return nil, "unknown type"
	})

	ctx := context.Background()
	_ = tr.Init(ctx, transport.Config{})

	_, err := tr.Upload(ctx, "{}", nil)
	var conflict *transport.UploadConflict
	if !errorsAs(err, &conflict) {
		t.Fatalf("expected UploadConflict, got %v", err)
	}
}

func TestRequestTimeout(t *testing.T) {
	tr := New(&fakeChannel{handle: func(Outbound) {}}) // never responds

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := tr.Init(ctx, transport.Config{}); err == nil {
		t.Fatal("expected Init to fail when the peer never responds")
	}
}

func TestDestroyRejectsPending(t *testing.T) {
	tr := New(&fakeChannel{handle: func(Outbound) {}}) // never responds

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		done <- tr.Init(ctx, transport.Config{})
	}()

	time.Sleep(5 * time.Millisecond)
	if err := tr.Destroy(ctx); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Init to fail after Destroy")
		}
	case <-time.After(time.Second):
		t.Fatal("Init did not return after Destroy")
	}
}

func errorsAs(err error, target **transport.UploadConflict) bool {
	uc, ok := err.(*transport.UploadConflict)
	if !ok {
		return false
	}
	*target = uc
	return true
}
