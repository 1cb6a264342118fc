// Package storage defines the local-bookmarks-storage contract the
// orchestrator consumes (spec.md §6), and a reference SQLite-backed
// implementation (internal/storage/sqlite).
package storage

import (
	"context"

	"github.com/utags/sync-core/internal/bookmark"
)

// Metadata is the store-level bookkeeping the orchestrator reads to decide
// whether migration is needed.
type Metadata struct {
	DatabaseVersion int
	Created         int64
	Updated         int64
}

// LocalStore is the minimal contract the orchestrator relies on for the
// local bookmarks map (spec.md §6). Implementations must migrate
// in-place, sequentially, up to CurrentVersion before serving any other
// call, and reject calls against a database newer than they understand.
type LocalStore interface {
	GetData(ctx context.Context) (map[bookmark.Key]*bookmark.Record, error)
	Upsert(ctx context.Context, records map[bookmark.Key]*bookmark.Record) error
	Delete(ctx context.Context, keys []bookmark.Key) error
	GetStoreMetadata(ctx context.Context) (Metadata, error)
}
