package merge

import "github.com/utags/sync-core/internal/bookmark"

// mergeUpdates implements "merge-updates" from spec.md §4.B: both sides are
// valid and present, so tags, meta, and (when applicable) deletedMeta are
// each reconciled under their own, orthogonal strategy.
func mergeUpdates(local, remote *bookmark.Record, strategy Strategy) *bookmark.Record {
	out := &bookmark.Record{
		Tags:       mergeTags(local, remote, strategy.Tags),
		Highlights: pickSideField(local, remote, strategy.Tags, local.Highlights, remote.Highlights),
		ImportFrom: pickImportFrom(local, remote, strategy.Tags),
	}
	out.Meta = mergeMeta(local.Meta, remote.Meta, strategy.Meta)

	if bookmark.IsDeleted(out) {
		out.DeletedMeta = mergeDeletedMeta(local, remote, strategy.Meta)
	}
	return out
}

func localNewer(local, remote *bookmark.Record) bool {
	return bookmark.LastTouch(local.Meta) >= bookmark.LastTouch(remote.Meta)
}

// mergeTags reconciles Tags per TagStrategy.
func mergeTags(local, remote *bookmark.Record, strategy TagStrategy) []string {
	switch strategy {
	case TagLocal:
		return append([]string(nil), local.Tags...)
	case TagRemote:
		return append([]string(nil), remote.Tags...)
	case TagNewer:
		if localNewer(local, remote) {
			return append([]string(nil), local.Tags...)
		}
		return append([]string(nil), remote.Tags...)
	default: // TagUnion
		seen := make(map[string]bool, len(local.Tags)+len(remote.Tags))
		out := make([]string, 0, len(local.Tags)+len(remote.Tags))
		for _, t := range local.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
		for _, t := range remote.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
		return out
	}
}

// pickSideField resolves any "carried through untouched" sub-record
// (Highlights, ImportFrom) using the same side selection as whichever side
// contributed the tags value: local/remote take that side's value outright;
// newer/union both take "whichever side is newer", since there is no union
// operation defined for opaque sub-records.
func pickSideField(local, remote *bookmark.Record, strategy TagStrategy, localVal, remoteVal []bookmark.Highlight) []bookmark.Highlight {
	switch strategy {
	case TagLocal:
		return localVal
	case TagRemote:
		return remoteVal
	default:
		if localNewer(local, remote) {
			return localVal
		}
		return remoteVal
	}
}

func pickImportFrom(local, remote *bookmark.Record, strategy TagStrategy) *bookmark.ImportProvenance {
	switch strategy {
	case TagLocal:
		return local.ImportFrom
	case TagRemote:
		return remote.ImportFrom
	default:
		if localNewer(local, remote) {
			return local.ImportFrom
		}
		return remote.ImportFrom
	}
}

// mergeMeta reconciles Meta per MetaStrategy. Created/Updated/Updated2 are
// recomputed unconditionally afterward by recomputeDates, so the values
// chosen here for those three fields are discarded; only Title, Description,
// Note, and Extra survive from this step.
func mergeMeta(local, remote bookmark.Meta, strategy MetaStrategy) bookmark.Meta {
	switch strategy {
	case MetaLocal:
		return local
	case MetaRemote:
		return remote
	case MetaNewer:
		if bookmark.LastTouch(local) >= bookmark.LastTouch(remote) {
			return local
		}
		return remote
	default: // MetaMerge: overlay older with newer's defined fields.
		older, newer := remote, local
		if bookmark.LastTouch(remote) > bookmark.LastTouch(local) {
			older, newer = local, remote
		}
		out := older
		if newer.Title != "" {
			out.Title = newer.Title
		}
		if newer.Description != "" {
			out.Description = newer.Description
		}
		if newer.Note != "" {
			out.Note = newer.Note
		}
		out.Extra = mergeExtra(older.Extra, newer.Extra)
		return out
	}
}

// mergeExtra overlays newer's defined open-schema fields onto older's.
func mergeExtra(older, newer map[string]any) map[string]any {
	if older == nil && newer == nil {
		return nil
	}
	out := make(map[string]any, len(older)+len(newer))
	for k, v := range older {
		out[k] = v
	}
	for k, v := range newer {
		out[k] = v
	}
	return out
}

// mergeDeletedMeta reconciles DeletedMeta: missing on one side means the
// other wins outright; when both are present it follows the same selection
// logic as mergeMeta's non-"merge" branches (local/remote/newer), and for
// "merge" overlays older's fields with newer's defined ones, same shape as
// mergeMeta's default branch but over DeletedMeta's two fields.
func mergeDeletedMeta(local, remote *bookmark.Record, strategy MetaStrategy) *bookmark.DeletedMeta {
	l, r := local.DeletedMeta, remote.DeletedMeta
	switch {
	case l == nil && r == nil:
		return nil
	case l == nil:
		return r
	case r == nil:
		return l
	}

	switch strategy {
	case MetaLocal:
		return l
	case MetaRemote:
		return r
	case MetaNewer:
		if localNewer(local, remote) {
			return l
		}
		return r
	default: // MetaMerge
		older, newer := r, l
		if bookmark.LastTouch(remote.Meta) > bookmark.LastTouch(local.Meta) {
			older, newer = l, r
		}
		out := *older
		if newer.Deleted != 0 {
			out.Deleted = newer.Deleted
		}
		if newer.ActionType != "" {
			out.ActionType = newer.ActionType
		}
		return &out
	}
}
