package merge

import (
	"context"
	"sort"

	"github.com/utags/sync-core/internal/bookmark"
)

// Merge performs the pure, deterministic three-way reconciliation described
// in spec.md §4.B: given a local and a remote bookmark map, a strategy, and
// the sync window, it produces a merged map and the list of keys that were
// dropped as stale.
//
// Merge is pure: it performs no I/O and its output depends only on its
// inputs, never on wall-clock time or map iteration order (P1).
//
// If either local or remote is nil (the caller has no map at all for that
// side, as opposed to an empty-but-present map), Merge returns an empty
// result without attempting any reconciliation.
func Merge(ctx context.Context, local, remote map[bookmark.Key]*bookmark.Record, strategy Strategy, opt SyncOption, onProgress ProgressFunc) (*Result, error) {
	if local == nil || remote == nil {
		return &Result{Merged: map[bookmark.Key]*bookmark.Record{}, Deleted: nil}, nil
	}

	keys := unionKeys(local, remote)

	result := &Result{Merged: make(map[bookmark.Key]*bookmark.Record, len(keys))}

	err := processInBatches(ctx, keys, func(chunk []bookmark.Key) error {
		for _, k := range chunk {
			mergeKey(k, local[k], remote[k], strategy, opt, result)
		}
		return nil
	}, BatchOptions{BatchSize: DefaultBatchSize, OnProgress: onProgress})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func unionKeys(local, remote map[bookmark.Key]*bookmark.Record) []bookmark.Key {
	seen := make(map[bookmark.Key]bool, len(local)+len(remote))
	keys := make([]bookmark.Key, 0, len(local)+len(remote))
	for k := range local {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range remote {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// mergeKey applies the per-key algorithm of spec.md §4.B to a single key and
// mutates result accordingly.
func mergeKey(key bookmark.Key, rawLocal, rawRemote *bookmark.Record, strategy Strategy, opt SyncOption, result *Result) {
	var local, remote *bookmark.Record
	if rawLocal != nil {
		local = bookmark.Normalize(rawLocal, strategy.DefaultDate)
	}
	if rawRemote != nil {
		remote = bookmark.Normalize(rawRemote, strategy.DefaultDate)
	}

	validLocal := local != nil && bookmark.LastTouch(local.Meta) >= opt.LastSyncTime
	validRemote := remote != nil && bookmark.LastTouch(remote.Meta) >= opt.LastSyncTime

	switch {
	case local != nil && remote != nil:
		rec, drop := mergeBothSources(local, remote, validLocal, validRemote, strategy)
		if drop {
			// Both stale: converged, not tombstoned (spec.md §9 open question).
			return
		}
		rec.Meta = recomputeDates(rec.Meta, &local.Meta, &remote.Meta)
		result.Merged[key] = rec

	case local != nil:
		if validLocal {
			rec := cloneRecord(local)
			rec.Meta = recomputeDates(rec.Meta, &local.Meta, nil)
			result.Merged[key] = rec
		} else {
			result.Deleted = append(result.Deleted, key)
		}

	case remote != nil:
		if validRemote {
			rec := cloneRecord(remote)
			rec.Meta = recomputeDates(rec.Meta, nil, &remote.Meta)
			result.Merged[key] = rec
		} else {
			result.Deleted = append(result.Deleted, key)
		}

	default:
		// Unreachable: key is only produced by unionKeys from present sides.
	}
}

// mergeBothSources implements the "both present" branch of spec.md §4.B.
func mergeBothSources(local, remote *bookmark.Record, validLocal, validRemote bool, strategy Strategy) (rec *bookmark.Record, drop bool) {
	switch {
	case !validLocal && !validRemote:
		return nil, true
	case validLocal && !validRemote:
		return cloneRecord(local), false
	case !validLocal && validRemote:
		return cloneRecord(remote), false
	default:
		return mergeUpdates(local, remote, strategy), false
	}
}

func cloneRecord(rec *bookmark.Record) *bookmark.Record {
	out := *rec
	out.Tags = append([]string(nil), rec.Tags...)
	return &out
}

// recomputeDates applies the unconditional date recompute of spec.md §4.B
// step 4, using whichever of local/remote Meta are present (nil when that
// side is absent rather than merely stale).
func recomputeDates(base bookmark.Meta, local, remote *bookmark.Meta) bookmark.Meta {
	out := base
	switch {
	case local != nil && remote != nil:
		out.Created = min64(local.Created, remote.Created)
		out.Updated = max64(local.Updated, remote.Updated)
		touch := max64(bookmark.LastTouch(*local), bookmark.LastTouch(*remote)) + 1
		out.Updated2 = &touch
	case local != nil:
		out.Created = local.Created
		out.Updated = local.Updated
		touch := bookmark.LastTouch(*local) + 1
		out.Updated2 = &touch
	case remote != nil:
		out.Created = remote.Created
		out.Updated = remote.Updated
		touch := bookmark.LastTouch(*remote) + 1
		out.Updated2 = &touch
	}
	return out
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
