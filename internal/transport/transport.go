// Package transport defines the uniform capability set every remote
// adapter exposes to the sync orchestrator (spec.md §4.D), plus the error
// kinds transports raise (spec.md §7).
package transport

import "context"

// RemoteMeta identifies a remote resource revision for optimistic locking.
// Every field is optional; consumers may treat any of them as absent.
type RemoteMeta struct {
	Timestamp *int64  `json:"timestamp,omitempty"`
	Version   *string `json:"version,omitempty"`
	SHA       *string `json:"sha,omitempty"`
}

// AuthStatus is the result of a GetAuthStatus probe.
type AuthStatus string

const (
	AuthAuthenticated   AuthStatus = "authenticated"
	AuthUnauthenticated AuthStatus = "unauthenticated"
	AuthError           AuthStatus = "error"
	AuthRequiresConfig  AuthStatus = "requires_config"
	AuthUnknown         AuthStatus = "unknown"
)

// Download is the result of Download: the serialized bookmarks payload (nil
// when the remote resource does not exist) and its revision.
type Download struct {
	Data       *string
	RemoteMeta *RemoteMeta
}

// Config is the subset of a service configuration a transport needs to
// initialize. It is passed to Init already validated by internal/config.
type Config struct {
	ServiceID string
	Type      string
	Target    map[string]string
	Credentials map[string]string
}

// Transport is the capability set every remote adapter exposes (spec.md
// §4.D). All operations may block on I/O and must respect ctx cancellation.
type Transport interface {
	// Init establishes a session for cfg; may perform a handshake.
	Init(ctx context.Context, cfg Config) error

	// GetConfig returns the config passed to Init.
	GetConfig() Config

	// GetRemoteMetadata returns the remote's current revision, or nil if
	// the resource does not exist.
	GetRemoteMetadata(ctx context.Context) (*RemoteMeta, error)

	// Download fetches the remote payload and its revision.
	Download(ctx context.Context) (Download, error)

	// Upload writes data, honoring expectedRemoteMeta as an optimistic-
	// locking witness: if provided and the remote has advanced, Upload
	// fails with UploadConflict.
	Upload(ctx context.Context, data string, expectedRemoteMeta *RemoteMeta) (RemoteMeta, error)

	// Destroy releases all pending operations. Safe to call more than once.
	Destroy(ctx context.Context) error
}

// AuthProbe is implemented by transports that can report authentication
// status (spec.md §4.D: optional capability).
type AuthProbe interface {
	GetAuthStatus(ctx context.Context) (AuthStatus, error)
}

// Locker is implemented by transports that support an explicit remote lock
// (spec.md §4.D: optional capability).
type Locker interface {
	AcquireLock(ctx context.Context) (bool, error)
	ReleaseLock(ctx context.Context) error
}
