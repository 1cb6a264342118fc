// Package config implements the service-config registry (spec.md §4.G): a
// validated store of ServiceConfig values and the notion of "active
// service", persisted as a single serialized blob.
package config

import "github.com/utags/sync-core/internal/merge"

// ServiceType identifies which transport a ServiceConfig drives.
type ServiceType string

const (
	TypeGitHub          ServiceType = "github"
	TypeWebDAV          ServiceType = "webdav"
	TypeCustomAPI       ServiceType = "customApi"
	TypeExtensionBridge ServiceType = "extensionBridge"
)

// Scope selects which bookmarks a service synchronizes: every bookmark, or
// a single named collection.
type Scope struct {
	Kind         string `json:"kind"` // "all" or "collection"
	CollectionID string `json:"collectionId,omitempty"`
}

// AllScope is the default scope: every bookmark participates.
var AllScope = Scope{Kind: "all"}

// Watermarks are the post-sync bookkeeping a successful round writes back.
type Watermarks struct {
	LastSyncTimestamp     int64          `json:"lastSyncTimestamp,omitempty"`
	LastSyncLocalDataHash string         `json:"lastSyncLocalDataHash,omitempty"`
	LastSyncMeta          map[string]any `json:"lastSyncMeta,omitempty"`
}

// ServiceConfig is one configured remote the orchestrator can synchronize
// against.
type ServiceConfig struct {
	ID          string            `json:"id"`
	Type        ServiceType       `json:"type"`
	DisplayName string            `json:"displayName,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
	Target      map[string]string `json:"target,omitempty"`
	Scope       Scope             `json:"scope"`
	Enabled     bool              `json:"enabled"`

	// MergeStrategy overrides the orchestrator's default strategy for this
	// service when non-nil.
	MergeStrategy *merge.Strategy `json:"mergeStrategy,omitempty"`

	Watermarks Watermarks `json:"watermarks"`
}

// materialTargetFields lists target keys whose change invalidates a
// service's watermarks (spec.md §4.G watermark-invalidation rule).
var materialTargetFields = map[string]bool{
	"url": true, "repo": true, "path": true, "branch": true,
	"owner": true, "apiUrl": true, "endpoint": true,
}

// clone returns a deep-enough copy of sc for safe storage in the registry
// (the registry always hands out/takes in copies, never shared pointers).
func (sc ServiceConfig) clone() ServiceConfig {
	out := sc
	out.Credentials = cloneStringMap(sc.Credentials)
	out.Target = cloneStringMap(sc.Target)
	if sc.MergeStrategy != nil {
		strategy := *sc.MergeStrategy
		out.MergeStrategy = &strategy
	}
	out.Watermarks.LastSyncMeta = cloneAnyMap(sc.Watermarks.LastSyncMeta)
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
