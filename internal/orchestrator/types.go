package orchestrator

import "github.com/utags/sync-core/internal/transport"

// State is one of the sync round's state-machine states (spec.md §4.F).
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateChecking     State = "checking"
	StateDownloading  State = "downloading"
	StateMerging      State = "merging"
	StateUploading    State = "uploading"
	StateSuccess      State = "success"
	StateConflict     State = "conflict"
	StateError        State = "error"
	StateDisabled     State = "disabled"
)

// terminal reports whether state is one synchronize may be called from
// (spec.md I5 guard).
func (s State) terminal() bool {
	switch s {
	case StateIdle, StateSuccess, StateError, StateConflict, StateDisabled:
		return true
	default:
		return false
	}
}

// RoundStatus is the terminal outcome of one completed round.
type RoundStatus string

const (
	RoundSuccess  RoundStatus = "success"
	RoundConflict RoundStatus = "conflict"
	RoundError    RoundStatus = "error"
)

// ConflictDetail describes why a round ended in conflict.
type ConflictDetail struct {
	Expected *transport.RemoteMeta
	Detail   string
}

// RoundResult is a read-only snapshot of the most recent terminal round for
// a service. Supplemental feature carried from original_source: the
// original kept a "last sync status" surface for its popup UI; spec.md's
// Non-goals exclude bookmark presentation but not a structured status
// query, so LastResult is in scope.
type RoundResult struct {
	Status       RoundStatus
	MergedCount  int
	RemovedCount int
	Conflict     *ConflictDetail
	Err          error
	FinishedAt   int64
}
