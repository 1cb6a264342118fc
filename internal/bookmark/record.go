// Package bookmark defines the value types shared by the merge engine and
// the sync orchestrator: a bookmark record, its metadata, its deletion
// marker, and the store-level shape those records live in.
package bookmark

// Key identifies a bookmark within a store. By convention a URL.
type Key = string

// DeletedTag marks a record as logically deleted. Its presence in Tags must
// agree with DeletedMeta being non-nil (invariant I1), except transiently on
// unnormalized input.
const DeletedTag = "DELETED"

// ActionType describes the kind of deletion event recorded in DeletedMeta.
type ActionType string

const (
	ActionDelete ActionType = "delete"
	ActionArchive ActionType = "archive"
)

// DeletedMeta is the deletion event attached to a tombstoned record.
type DeletedMeta struct {
	Deleted    int64      `json:"deleted"`
	ActionType ActionType `json:"actionType"`
}

// Meta carries the timestamps and free-form fields of a bookmark record.
//
// Created is immutable under normal editing. Updated is bumped by any
// user-visible edit. Updated2, when present, is bumped by any modification
// at all, including sync-induced ones, and is always >= max(Created, Updated).
type Meta struct {
	Created     int64  `json:"created"`
	Updated     int64  `json:"updated"`
	Updated2    *int64 `json:"updated2,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Note        string `json:"note,omitempty"`

	// Extra carries the open-schema string/number fields the model does not
	// name explicitly. Merged field-by-field: newer overlays older.
	Extra map[string]any `json:"-"`
}

// Highlight is carried through merges untouched; no field-level merge rule
// applies to it.
type Highlight struct {
	Text      string `json:"text"`
	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// ImportProvenance records where a bookmark originally came from. Carried
// through merges untouched, like Highlights.
type ImportProvenance struct {
	Source     string `json:"source,omitempty"`
	ImportedAt int64  `json:"importedAt,omitempty"`
}

// Record is one bookmark entry in a Store.
type Record struct {
	// Tags preserves insertion order; duplicates are not allowed.
	Tags []string `json:"tags"`
	Meta Meta     `json:"meta"`

	// DeletedMeta is present iff the record is a tombstone (I1).
	DeletedMeta *DeletedMeta `json:"deletedMeta,omitempty"`

	Highlights []Highlight       `json:"highlights,omitempty"`
	ImportFrom *ImportProvenance `json:"importFrom,omitempty"`
}

// Store is a bookmark map plus store-level metadata.
type Store struct {
	Data            map[Key]*Record `json:"data"`
	DatabaseVersion int             `json:"databaseVersion"`
	Created         int64           `json:"created"`
	Updated         int64           `json:"updated"`
	Exported        *int64          `json:"exported,omitempty"`
}

// IsDeleted reports whether rec is tombstoned, by tag membership.
func IsDeleted(rec *Record) bool {
	if rec == nil {
		return false
	}
	for _, t := range rec.Tags {
		if t == DeletedTag {
			return true
		}
	}
	return false
}

// LastTouch returns the most recent timestamp carried by m: the greatest of
// Created, Updated, and Updated2 (when present).
func LastTouch(m Meta) int64 {
	last := m.Created
	if m.Updated > last {
		last = m.Updated
	}
	if m.Updated2 != nil && *m.Updated2 > last {
		last = *m.Updated2
	}
	return last
}

// Normalize repairs a record so it satisfies invariants I1/I2, using
// defaultDate for any missing or invalid timestamp. It never fails: every
// input is accepted after repair.
//
// I1 healing: a record carrying the DELETED tag without DeletedMeta gets one
// synthesized from its own Meta.Updated; a record carrying DeletedMeta but
// not the tag has DeletedMeta cleared (undelete wins).
func Normalize(rec *Record, defaultDate int64) *Record {
	if rec == nil {
		return nil
	}
	out := *rec
	out.Tags = dedupTags(rec.Tags)
	out.Meta = normalizeMeta(rec.Meta, defaultDate)

	tagged := IsDeleted(&out)
	switch {
	case tagged && out.DeletedMeta == nil:
		out.DeletedMeta = &DeletedMeta{Deleted: out.Meta.Updated, ActionType: ActionDelete}
	case !tagged && out.DeletedMeta != nil:
		out.DeletedMeta = nil
	}
	return &out
}

// normalizeMeta fills in invalid Created/Updated from defaultDate. If only
// Updated is invalid it is set to Created, per spec.md §4.A.
func normalizeMeta(m Meta, defaultDate int64) Meta {
	out := m
	if !validDate(out.Created) {
		out.Created = defaultDate
		out.Updated = defaultDate
	} else if !validDate(out.Updated) {
		out.Updated = out.Created
	}
	return out
}

func validDate(ts int64) bool {
	return ts > 0
}

// dedupTags drops empties and de-duplicates while preserving insertion
// order; it does not trim. Tag input may also arrive as a single
// comma-separated string via ParseTags, which splits and trims before
// calling here; dedupTags itself only operates on an already-split slice.
func dedupTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
