// Package merge implements the pure, deterministic three-way reconciliation
// of two bookmark maps (spec.md §4.B) and the cooperative batch processor it
// runs on (spec.md §4.C).
package merge

import "github.com/utags/sync-core/internal/bookmark"

// MetaStrategy selects how Meta is reconciled when both sides of a key are
// valid and differ.
type MetaStrategy string

const (
	MetaLocal  MetaStrategy = "local"
	MetaRemote MetaStrategy = "remote"
	MetaNewer  MetaStrategy = "newer"
	MetaMerge  MetaStrategy = "merge"
)

// TagStrategy selects how Tags is reconciled when both sides of a key are
// valid and differ.
type TagStrategy string

const (
	TagLocal  TagStrategy = "local"
	TagRemote TagStrategy = "remote"
	TagNewer  TagStrategy = "newer"
	TagUnion  TagStrategy = "union"
)

// Strategy configures a merge round. The three *Over* / *Overwrite* fields
// are reserved per spec.md §9: they are accepted and typed, but have no
// effect in the current per-key algorithm.
type Strategy struct {
	Meta    MetaStrategy
	Tags    TagStrategy
	DefaultDate int64

	SkipExisting            bool
	UpdateOverDelete        bool
	OverwriteLocalDeleted   bool
	OverwriteRemoteDeleted  bool
}

// DefaultStrategy is the orchestrator's default: meta=merge, tags=union.
func DefaultStrategy(defaultDate int64) Strategy {
	return Strategy{Meta: MetaMerge, Tags: TagUnion, DefaultDate: defaultDate}
}

// SyncOption carries the timestamps a merge round is evaluated against.
type SyncOption struct {
	CurrentTime  int64
	LastSyncTime int64
}

// Progress reports cooperative-batch progress to an optional observer.
type Progress struct {
	ProcessedItems int
	TotalItems     int
}

// ProgressFunc observes Progress between batches.
type ProgressFunc func(Progress)

// Result is the output of Merge: the reconciled map and the keys dropped as
// stale on the side that held them.
type Result struct {
	Merged  map[bookmark.Key]*bookmark.Record
	Deleted []bookmark.Key
}
