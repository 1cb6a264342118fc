package config

import "encoding/json"

// Load replaces the registry's contents from store. Services failing
// validation are discarded (spec.md §4.G: "On load, services failing
// validation are discarded"); if the active id referenced a discarded
// service, it is cleared. A missing or corrupt blob yields an empty
// registry rather than an error, per spec.md §6.
func (r *Registry) Load(store BlobStore) error {
	data, err := store.Load()
	if err != nil || len(data) == 0 {
		r.reset()
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.reset()
		return nil
	}

	r.mu.Lock()
	r.services = make(map[string]ServiceConfig, len(snap.Services))
	r.order = nil
	r.mu.Unlock()

	for _, sc := range snap.Services {
		if err := validate(sc); err != nil {
			continue
		}
		r.mu.Lock()
		r.services[sc.ID] = sc
		r.order = append(r.order, sc.ID)
		r.mu.Unlock()
	}

	r.mu.Lock()
	if _, ok := r.services[snap.ActiveID]; ok {
		r.activeID = snap.ActiveID
	} else {
		r.activeID = ""
	}
	r.mu.Unlock()

	return nil
}

// Save serializes the registry's current contents to store.
func (r *Registry) Save(store BlobStore) error {
	r.mu.Lock()
	snap := snapshot{ActiveID: r.activeID}
	for _, id := range r.order {
		snap.Services = append(snap.Services, r.services[id])
	}
	r.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return store.Save(data)
}

func (r *Registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = make(map[string]ServiceConfig)
	r.order = nil
	r.activeID = ""
}
