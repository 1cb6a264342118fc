package config

import (
	"fmt"
	"net/url"
	"sync"
)

// Registry is an in-memory, validated store of ServiceConfig values plus
// the notion of "active service" (spec.md §4.G). Grounded on the teacher's
// internal/daemon.Registry: an in-process mutex guarding a map, with
// persistence layered on top (see store.go) rather than baked in.
type Registry struct {
	mu       sync.Mutex
	services map[string]ServiceConfig
	order    []string // insertion order, for deterministic List
	activeID string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]ServiceConfig)}
}

// List returns every service in insertion order.
func (r *Registry) List() []ServiceConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ServiceConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.services[id].clone())
	}
	return out
}

// Has reports whether id is a known service.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.services[id]
	return ok
}

// GetByID returns the service with id, if any.
func (r *Registry) GetByID(id string) (ServiceConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.services[id]
	if !ok {
		return ServiceConfig{}, false
	}
	return sc.clone(), true
}

// Add validates and inserts a new service. Fails if id is already taken.
func (r *Registry) Add(sc ServiceConfig) error {
	if err := validate(sc); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[sc.ID]; exists {
		return &ValidationError{ServiceID: sc.ID, Reason: "service id already exists"}
	}
	r.services[sc.ID] = sc.clone()
	r.order = append(r.order, sc.ID)
	return nil
}

// Update validates and replaces an existing service. Type is immutable
// (spec.md I4); changing it is rejected. Changing any material target
// field clears all watermarks (spec.md §4.G watermark-invalidation rule).
func (r *Registry) Update(sc ServiceConfig) error {
	if err := validate(sc); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.services[sc.ID]
	if !ok {
		return &ValidationError{ServiceID: sc.ID, Reason: "unknown service"}
	}
	if existing.Type != sc.Type {
		return &ValidationError{ServiceID: sc.ID, Reason: "type is immutable"}
	}

	if materialTargetChanged(existing.Target, sc.Target) {
		sc.Watermarks = Watermarks{}
	}

	r.services[sc.ID] = sc.clone()
	return nil
}

// Remove deletes a service. If it was active, the active id is cleared.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[id]; !ok {
		return
	}
	delete(r.services, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.activeID == id {
		r.activeID = ""
	}
}

// SetActive sets the active service. Succeeds only for ids that exist and
// are enabled; otherwise the active id becomes absent.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.services[id]
	if !ok || !sc.Enabled {
		r.activeID = ""
		return &ValidationError{ServiceID: id, Reason: "not an existing, enabled service"}
	}
	r.activeID = id
	return nil
}

// GetActive returns the active service, if any is set.
func (r *Registry) GetActive() (ServiceConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == "" {
		return ServiceConfig{}, false
	}
	sc, ok := r.services[r.activeID]
	if !ok {
		return ServiceConfig{}, false
	}
	return sc.clone(), true
}

func materialTargetChanged(before, after map[string]string) bool {
	for k := range materialTargetFields {
		if before[k] != after[k] {
			return true
		}
	}
	return false
}

// validate applies the add/update validation rules of spec.md §4.G.
func validate(sc ServiceConfig) error {
	if sc.ID == "" {
		return &ValidationError{ServiceID: sc.ID, Reason: "id is required"}
	}

	switch sc.Type {
	case TypeGitHub:
		if sc.Target["owner"] == "" || sc.Target["repo"] == "" || sc.Target["path"] == "" {
			return &ValidationError{ServiceID: sc.ID, Reason: "github requires target.owner, target.repo, target.path"}
		}
	case TypeWebDAV:
		if sc.Credentials["username"] == "" || sc.Credentials["password"] == "" {
			return &ValidationError{ServiceID: sc.ID, Reason: "webdav requires username+password credentials"}
		}
		if !validURL(sc.Target["url"]) {
			return &ValidationError{ServiceID: sc.ID, Reason: "webdav requires a syntactically valid target.url"}
		}
	case TypeCustomAPI:
		if !validURL(sc.Target["url"]) {
			return &ValidationError{ServiceID: sc.ID, Reason: "customApi requires a syntactically valid target.url"}
		}
	case TypeExtensionBridge:
		// Target is legitimately absent for extensionBridge.
	default:
		return &ValidationError{ServiceID: sc.ID, Reason: fmt.Sprintf("unsupported type %q", sc.Type)}
	}

	if sc.Type != TypeExtensionBridge && sc.Target == nil {
		return &ValidationError{ServiceID: sc.ID, Reason: "target is required for this type"}
	}

	return nil
}

func validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
