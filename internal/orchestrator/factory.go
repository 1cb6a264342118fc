package orchestrator

import (
	"context"
	"fmt"

	"github.com/utags/sync-core/internal/config"
	"github.com/utags/sync-core/internal/transport"
	"github.com/utags/sync-core/internal/transport/bridge"
	"github.com/utags/sync-core/internal/transport/githubblob"
	"github.com/utags/sync-core/internal/transport/httpjson"
	"github.com/utags/sync-core/internal/transport/webdav"
)

// ChannelProvider resolves the postMessage-style Channel an extensionBridge
// service talks over. Hosting applications supply this; it cannot be
// constructed generically the way the other transports can because the
// channel is inherently tied to the host's messaging surface (a browser
// extension port, a test double, ...).
type ChannelProvider func(serviceID string) (bridge.Channel, error)

// TransportFactory builds a transport.Transport for a ServiceConfig,
// dispatching on its Type tag. This is the tagged-variant switch spec.md
// §4.D calls for; it lives here rather than in internal/transport because
// internal/transport/bridge (and its siblings) import internal/transport
// for the shared interface types, and internal/transport importing them
// back would cycle.
type TransportFactory struct {
	Channels ChannelProvider
}

// New builds and initializes the transport for sc.
func (f TransportFactory) New(ctx context.Context, sc config.ServiceConfig) (transport.Transport, error) {
	var t transport.Transport

	switch sc.Type {
	case config.TypeGitHub:
		t = githubblob.New()
	case config.TypeWebDAV:
		t = webdav.New()
	case config.TypeCustomAPI:
		t = httpjson.New(httpjson.EnvelopePaths{})
	case config.TypeExtensionBridge:
		if f.Channels == nil {
			return nil, &transport.ConfigError{ServiceID: sc.ID, Reason: "no channel provider configured for extensionBridge"}
		}
		ch, err := f.Channels(sc.ID)
		if err != nil {
			return nil, &transport.TransportInitError{Transport: "bridge", Err: err}
		}
		t = bridge.New(ch)
	default:
		return nil, &transport.ConfigError{ServiceID: sc.ID, Reason: fmt.Sprintf("unsupported transport type %q", sc.Type)}
	}

	cfg := transport.Config{ServiceID: sc.ID, Type: string(sc.Type), Target: sc.Target, Credentials: sc.Credentials}
	if err := t.Init(ctx, cfg); err != nil {
		return nil, err
	}
	return t, nil
}
