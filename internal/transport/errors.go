package transport

import "fmt"

// ConfigError indicates a service config failed validation, or an operation
// referenced an unknown/disabled service.
type ConfigError struct {
	ServiceID string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for service %q: %s", e.ServiceID, e.Reason)
}

// TransportInitError indicates Init failed (handshake, auth, network). The
// transport must not be cached by the orchestrator when this is returned.
type TransportInitError struct {
	Transport string
	Err       error
}

func (e *TransportInitError) Error() string {
	return fmt.Sprintf("%s: init failed: %v", e.Transport, e.Err)
}

func (e *TransportInitError) Unwrap() error { return e.Err }

// NetworkError indicates a download/upload/get-remote-metadata failure not
// classified as a conflict. The caller may retry.
type NetworkError struct {
	Transport string
	Op        string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Transport, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError indicates a remote payload is not a valid bookmarks map.
type ParseError struct {
	Transport string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %v", e.Transport, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UploadConflict indicates an optimistic-locking mismatch: the caller's
// expectedRemoteMeta no longer matches the remote's actual revision.
type UploadConflict struct {
	Transport string
	Expected  *RemoteMeta
	Actual    *RemoteMeta
	Detail    string
}

func (e *UploadConflict) Error() string {
	return fmt.Sprintf("%s: upload conflict: %s", e.Transport, e.Detail)
}

// MergeError is reserved: the merge engine itself never raises it, but an
// external validator or callback could.
type MergeError struct {
	Err error
}

func (e *MergeError) Error() string { return fmt.Sprintf("merge error: %v", e.Err) }
func (e *MergeError) Unwrap() error  { return e.Err }

// DestroyedError indicates an in-flight operation was aborted because the
// transport or orchestrator was destroyed.
type DestroyedError struct {
	Transport string
}

func (e *DestroyedError) Error() string {
	return fmt.Sprintf("%s: destroyed while operation was pending", e.Transport)
}
