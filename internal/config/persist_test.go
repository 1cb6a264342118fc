package config

import (
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "services.json"))

	r := NewRegistry()
	if err := r.Add(githubConfig("svc1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.SetActive("svc1"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := r.Save(store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewRegistry()
	if err := loaded.Load(store); err != nil {
		t.Fatalf("Load: %v", err)
	}

	sc, ok := loaded.GetByID("svc1")
	if !ok {
		t.Fatal("expected svc1 to survive the round trip")
	}
	if sc.Type != TypeGitHub || sc.Target["repo"] != "r" {
		t.Fatalf("unexpected round-tripped config: %+v", sc)
	}
	active, ok := loaded.GetActive()
	if !ok || active.ID != "svc1" {
		t.Fatalf("expected svc1 still active after round trip, got %+v ok=%v", active, ok)
	}
}

func TestFileStoreLoadMissingFileIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "nonexistent.json"))

	r := NewRegistry()
	if err := r.Load(store); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.List()) != 0 {
		t.Fatalf("expected an empty registry, got %v", r.List())
	}
}

func TestRegistryLoadDiscardsInvalidEntriesAndStaleActiveID(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "services.json"))

	raw := []byte(`{
		"activeId": "bad",
		"services": [
			{"id": "good", "type": "github", "target": {"owner":"o","repo":"r","path":"p"}, "enabled": true},
			{"id": "bad", "type": "github", "target": {"owner":"o"}, "enabled": true}
		]
	}`)
	if err := store.Save(raw); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r := NewRegistry()
	if err := r.Load(store); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if r.Has("bad") {
		t.Fatal("expected the invalid entry to be discarded")
	}
	if !r.Has("good") {
		t.Fatal("expected the valid entry to survive")
	}
	if _, ok := r.GetActive(); ok {
		t.Fatal("expected the stale active id referencing a discarded service to be cleared")
	}
}

func TestRegistryLoadCorruptBlobYieldsEmptyRegistry(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "services.json"))
	if err := store.Save([]byte("not json")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r := NewRegistry()
	if err := r.Load(store); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.List()) != 0 {
		t.Fatalf("expected an empty registry for a corrupt blob, got %v", r.List())
	}
}
