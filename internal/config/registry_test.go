package config

import "testing"

func githubConfig(id string) ServiceConfig {
	return ServiceConfig{
		ID:      id,
		Type:    TypeGitHub,
		Target:  map[string]string{"owner": "o", "repo": "r", "path": "bookmarks.json"},
		Enabled: true,
	}
}

func TestRegistryAddRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(githubConfig("svc1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(githubConfig("svc1")); err == nil {
		t.Fatal("expected an error adding a duplicate id")
	}
}

func TestRegistryAddValidatesPerType(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		name string
		sc   ServiceConfig
	}{
		{"github missing repo", ServiceConfig{ID: "a", Type: TypeGitHub, Target: map[string]string{"owner": "o", "path": "p"}}},
		{"webdav missing credentials", ServiceConfig{ID: "b", Type: TypeWebDAV, Target: map[string]string{"url": "https://x.test"}}},
		{"webdav bad url", ServiceConfig{ID: "c", Type: TypeWebDAV, Credentials: map[string]string{"username": "u", "password": "p"}, Target: map[string]string{"url": "not-a-url"}}},
		{"customApi bad url", ServiceConfig{ID: "d", Type: TypeCustomAPI, Target: map[string]string{"url": ""}}},
		{"unsupported type", ServiceConfig{ID: "e", Type: "bogus"}},
		{"missing id", ServiceConfig{Type: TypeExtensionBridge}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := r.Add(c.sc); err == nil {
				t.Fatalf("expected validation error for %+v", c.sc)
			}
		})
	}
}

func TestRegistryExtensionBridgeAllowsAbsentTarget(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(ServiceConfig{ID: "bridge1", Type: TypeExtensionBridge, Enabled: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestRegistryUpdateRejectsTypeChange(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(githubConfig("svc1")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	changed := githubConfig("svc1")
	changed.Type = TypeCustomAPI
	changed.Target = map[string]string{"url": "https://x.test"}

	if err := r.Update(changed); err == nil {
		t.Fatal("expected type change to be rejected (I4)")
	}
}

func TestRegistryUpdateClearsWatermarksOnMaterialTargetChange(t *testing.T) {
	r := NewRegistry()
	sc := githubConfig("svc1")
	sc.Watermarks = Watermarks{LastSyncTimestamp: 123, LastSyncLocalDataHash: "abc"}
	if err := r.Add(sc); err != nil {
		t.Fatalf("Add: %v", err)
	}

	changed := githubConfig("svc1")
	changed.Target["path"] = "other.json"
	changed.Watermarks = Watermarks{LastSyncTimestamp: 123, LastSyncLocalDataHash: "abc"}

	if err := r.Update(changed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := r.GetByID("svc1")
	if got.Watermarks.LastSyncTimestamp != 0 || got.Watermarks.LastSyncLocalDataHash != "" {
		t.Fatalf("expected watermarks cleared after a material target change, got %+v", got.Watermarks)
	}
}

func TestRegistryUpdatePreservesWatermarksOnNonMaterialChange(t *testing.T) {
	r := NewRegistry()
	sc := githubConfig("svc1")
	sc.Watermarks = Watermarks{LastSyncTimestamp: 123}
	if err := r.Add(sc); err != nil {
		t.Fatalf("Add: %v", err)
	}

	changed := githubConfig("svc1")
	changed.DisplayName = "renamed"
	changed.Watermarks = Watermarks{LastSyncTimestamp: 123}

	if err := r.Update(changed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := r.GetByID("svc1")
	if got.Watermarks.LastSyncTimestamp != 123 {
		t.Fatalf("expected watermarks preserved, got %+v", got.Watermarks)
	}
	if got.DisplayName != "renamed" {
		t.Fatalf("expected display name update to apply, got %q", got.DisplayName)
	}
}

func TestRegistryRemoveClearsActive(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(githubConfig("svc1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.SetActive("svc1"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	r.Remove("svc1")

	if _, ok := r.GetActive(); ok {
		t.Fatal("expected no active service after removing the active one")
	}
}

func TestRegistrySetActiveRequiresEnabled(t *testing.T) {
	r := NewRegistry()
	sc := githubConfig("svc1")
	sc.Enabled = false
	if err := r.Add(sc); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := r.SetActive("svc1"); err == nil {
		t.Fatal("expected SetActive to reject a disabled service")
	}
	if _, ok := r.GetActive(); ok {
		t.Fatal("expected no active service set")
	}
}

func TestRegistrySetActiveUnknownService(t *testing.T) {
	r := NewRegistry()
	if err := r.SetActive("missing"); err == nil {
		t.Fatal("expected an error for an unknown service")
	}
}

func TestRegistryListPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		if err := r.Add(githubConfig(id)); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	got := r.List()
	want := []string{"c", "a", "b"}
	for i, sc := range got {
		if sc.ID != want[i] {
			t.Fatalf("List()[%d].ID = %q, want %q", i, sc.ID, want[i])
		}
	}
}

func TestRegistryGetByIDReturnsACopy(t *testing.T) {
	r := NewRegistry()
	sc := githubConfig("svc1")
	if err := r.Add(sc); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, _ := r.GetByID("svc1")
	got.Target["owner"] = "mutated"

	again, _ := r.GetByID("svc1")
	if again.Target["owner"] != "o" {
		t.Fatalf("expected registry's internal copy unaffected by caller mutation, got %q", again.Target["owner"])
	}
}
