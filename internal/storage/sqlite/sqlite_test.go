package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/utags/sync-core/internal/bookmark"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "bookmarks.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertGetDataRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := &bookmark.Record{
		Tags: []string{"go", "reading"},
		Meta: bookmark.Meta{Created: 1000, Updated: 1000, Title: "Example"},
	}

	if err := store.Upsert(ctx, map[bookmark.Key]*bookmark.Record{"https://example.com": rec}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	data, err := store.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}

	got, ok := data["https://example.com"]
	if !ok {
		t.Fatal("record not found after round trip")
	}

	// A plain, non-deleted record with no import provenance must come back
	// with both optional pointers nil, not a phantom zero-value struct
	// decoded from the JSON literal "null".
	if got.DeletedMeta != nil {
		t.Errorf("DeletedMeta = %+v, want nil", got.DeletedMeta)
	}
	if got.ImportFrom != nil {
		t.Errorf("ImportFrom = %+v, want nil", got.ImportFrom)
	}
	if got.Highlights != nil {
		t.Errorf("Highlights = %+v, want nil", got.Highlights)
	}
	if got.Meta.Title != "Example" {
		t.Errorf("Meta.Title = %q, want %q", got.Meta.Title, "Example")
	}
}

func TestUpsertGetDataRoundTripWithOptionalFields(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := &bookmark.Record{
		Tags:        []string{bookmark.DeletedTag},
		Meta:        bookmark.Meta{Created: 1000, Updated: 2000},
		DeletedMeta: &bookmark.DeletedMeta{Deleted: 2000, ActionType: bookmark.ActionDelete},
		Highlights:  []bookmark.Highlight{{Text: "quote"}},
		ImportFrom:  &bookmark.ImportProvenance{Source: "pocket", ImportedAt: 500},
	}

	if err := store.Upsert(ctx, map[bookmark.Key]*bookmark.Record{"https://example.com/deleted": rec}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	data, err := store.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}

	got, ok := data["https://example.com/deleted"]
	if !ok {
		t.Fatal("record not found after round trip")
	}

	if got.DeletedMeta == nil || got.DeletedMeta.Deleted != 2000 {
		t.Errorf("DeletedMeta = %+v, want {Deleted:2000 ActionType:delete}", got.DeletedMeta)
	}
	if got.ImportFrom == nil || got.ImportFrom.Source != "pocket" {
		t.Errorf("ImportFrom = %+v, want {Source:pocket ImportedAt:500}", got.ImportFrom)
	}
	if len(got.Highlights) != 1 || got.Highlights[0].Text != "quote" {
		t.Errorf("Highlights = %+v, want one highlight with text %q", got.Highlights, "quote")
	}
}

func TestUpsertOverwritesOptionalFieldsWithNull(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := bookmark.Key("https://example.com/undelete")

	deleted := &bookmark.Record{
		Tags:        []string{bookmark.DeletedTag},
		Meta:        bookmark.Meta{Created: 1000, Updated: 1000},
		DeletedMeta: &bookmark.DeletedMeta{Deleted: 1000, ActionType: bookmark.ActionDelete},
	}
	if err := store.Upsert(ctx, map[bookmark.Key]*bookmark.Record{key: deleted}); err != nil {
		t.Fatalf("Upsert (deleted) failed: %v", err)
	}

	undeleted := &bookmark.Record{
		Tags: nil,
		Meta: bookmark.Meta{Created: 1000, Updated: 2000},
	}
	if err := store.Upsert(ctx, map[bookmark.Key]*bookmark.Record{key: undeleted}); err != nil {
		t.Fatalf("Upsert (undeleted) failed: %v", err)
	}

	data, err := store.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}

	got, ok := data[key]
	if !ok {
		t.Fatal("record not found after round trip")
	}
	if got.DeletedMeta != nil {
		t.Errorf("DeletedMeta = %+v, want nil after overwriting with an undeleted record", got.DeletedMeta)
	}
}

func TestGetStoreMetadataEmpty(t *testing.T) {
	store := setupTestStore(t)

	meta, err := store.GetStoreMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetStoreMetadata failed: %v", err)
	}
	if meta.DatabaseVersion != CurrentVersion {
		t.Errorf("DatabaseVersion = %d, want %d", meta.DatabaseVersion, CurrentVersion)
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := bookmark.Key("https://example.com")

	rec := &bookmark.Record{Tags: []string{"a"}, Meta: bookmark.Meta{Created: 1, Updated: 1}}
	if err := store.Upsert(ctx, map[bookmark.Key]*bookmark.Record{key: rec}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := store.Delete(ctx, []bookmark.Key{key}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	data, err := store.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if _, ok := data[key]; ok {
		t.Error("record still present after Delete")
	}
}
