// Package orchestrator implements the per-service sync state machine
// (spec.md §4.F): it drives one round against a pluggable transport,
// guarantees at-most-one concurrent round per service (I5), and emits
// lifecycle events throughout.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/utags/sync-core/internal/bookmark"
	"github.com/utags/sync-core/internal/config"
	"github.com/utags/sync-core/internal/corelog"
	"github.com/utags/sync-core/internal/lockfile"
	"github.com/utags/sync-core/internal/merge"
	"github.com/utags/sync-core/internal/storage"
	"github.com/utags/sync-core/internal/transport"
)

// Factory builds and initializes a transport.Transport for a
// ServiceConfig. TransportFactory is the production implementation; tests
// supply a fake.
type Factory interface {
	New(ctx context.Context, sc config.ServiceConfig) (transport.Transport, error)
}

// Orchestrator drives sync rounds for every service in a registry against
// a single local store, caching one transport per service.
type Orchestrator struct {
	registry *config.Registry
	store    storage.LocalStore
	factory  Factory
	events   *emitter
	now      func() int64

	mu          sync.Mutex
	states      map[string]State
	transports  map[string]transport.Transport
	transportOf map[string]config.ServiceConfig
	lastResult  map[string]*RoundResult

	processLock *lockfile.Lock
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithProcessLock opts into a cross-process advisory lock under dir,
// mirroring the teacher's cmd/bd/sync.go ".sync.lock" file. spec.md only
// requires in-process exclusivity (I5); this is an ambient addition for
// hosts where multiple OS processes might drive the same service.
func WithProcessLock(dir string) Option {
	return func(o *Orchestrator) {
		o.processLock = lockfile.New(dir + "/.sync.lock")
	}
}

// WithClock overrides the orchestrator's notion of "now", in epoch-ms.
// Defaults to the wall clock; tests may inject a fixed or stepping clock.
func WithClock(now func() int64) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New constructs an Orchestrator. factory builds transports on demand.
func New(registry *config.Registry, store storage.LocalStore, factory Factory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		store:       store,
		factory:     factory,
		events:      newEmitter(),
		now:         func() int64 { return time.Now().UnixMilli() },
		states:      make(map[string]State),
		transports:  make(map[string]transport.Transport),
		transportOf: make(map[string]config.ServiceConfig),
		lastResult:  make(map[string]*RoundResult),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// On subscribes to every lifecycle event the orchestrator emits.
func (o *Orchestrator) On(l Listener) (unsubscribe func()) { return o.events.On(l) }

// State returns a service's current state (StateIdle if never synced).
func (o *Orchestrator) State(serviceID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[serviceID]; ok {
		return s
	}
	return StateIdle
}

// LastResult returns the most recent terminal round's snapshot for a
// service, if any (supplemental feature, see RoundResult doc).
func (o *Orchestrator) LastResult(serviceID string) (*RoundResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.lastResult[serviceID]
	return r, ok
}

func (o *Orchestrator) transition(serviceID string, s State) {
	o.mu.Lock()
	o.states[serviceID] = s
	o.mu.Unlock()
	o.events.emit(Event{Type: EventStatusChange, ServiceID: serviceID, State: s})
}

// Synchronize drives one sync round for serviceID. It returns false without
// changing state if a round is already in a non-terminal state for this
// service (I5 guard).
func (o *Orchestrator) Synchronize(ctx context.Context, serviceID string) (bool, error) {
	o.mu.Lock()
	cur, ok := o.states[serviceID]
	if ok && !cur.terminal() {
		o.mu.Unlock()
		o.events.emit(Event{Type: EventInfo, ServiceID: serviceID, Message: fmt.Sprintf("sync round already in progress (state=%s)", cur)})
		return false, nil
	}
	// Claim the round before releasing the lock so a concurrent caller sees
	// a non-terminal state and is rejected by the guard above.
	o.states[serviceID] = StateInitializing
	o.mu.Unlock()

	if o.processLock != nil {
		if err := o.processLock.Acquire(ctx); err != nil {
			o.mu.Lock()
			o.states[serviceID] = StateIdle
			o.mu.Unlock()
			return false, err
		}
		defer o.processLock.Release() //nolint:errcheck
	}

	o.events.emit(Event{Type: EventSyncStart, ServiceID: serviceID})
	result := o.runRound(ctx, serviceID)

	o.mu.Lock()
	o.lastResult[serviceID] = result
	o.mu.Unlock()

	switch result.Status {
	case RoundSuccess:
		o.transition(serviceID, StateSuccess)
		o.events.emit(Event{Type: EventSyncSuccess, ServiceID: serviceID, Result: result})
	case RoundConflict:
		o.transition(serviceID, StateConflict)
		o.events.emit(Event{Type: EventSyncConflict, ServiceID: serviceID, Result: result})
	case RoundError:
		o.transition(serviceID, StateError)
		o.events.emit(Event{Type: EventError, ServiceID: serviceID, Err: result.Err})
	}
	o.events.emit(Event{Type: EventSyncEnd, ServiceID: serviceID, Result: result})

	o.mu.Lock()
	o.states[serviceID] = StateIdle
	o.mu.Unlock()

	return result.Status == RoundSuccess, result.Err
}

// runRound executes the happy-path/conflict/error round described in
// spec.md §4.F steps 1-6, always returning a terminal RoundResult rather
// than propagating raw errors, so callers get a uniform {status, detail}
// shape regardless of which step failed.
func (o *Orchestrator) runRound(ctx context.Context, serviceID string) *RoundResult {
	finishedAt := o.now()

	o.transition(serviceID, StateInitializing)
	sc, ok := o.registry.GetByID(serviceID)
	if !ok {
		return &RoundResult{Status: RoundError, Err: &transport.ConfigError{ServiceID: serviceID, Reason: "unknown service"}, FinishedAt: finishedAt}
	}
	if !sc.Enabled {
		o.transition(serviceID, StateDisabled)
		return &RoundResult{Status: RoundError, Err: &transport.ConfigError{ServiceID: serviceID, Reason: "service disabled"}, FinishedAt: finishedAt}
	}

	t, err := o.transportFor(ctx, sc)
	if err != nil {
		return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
	}

	o.transition(serviceID, StateChecking)
	initialRemoteMeta, err := t.GetRemoteMetadata(ctx)
	if err != nil {
		return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
	}

	o.transition(serviceID, StateDownloading)
	dl, err := t.Download(ctx)
	if err != nil {
		return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
	}
	remoteMap, err := parseRemoteMap(dl.Data)
	if err != nil {
		return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
	}
	downloadRemoteMeta := dl.RemoteMeta

	o.transition(serviceID, StateMerging)
	localMap, err := o.store.GetData(ctx)
	if err != nil {
		return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
	}

	syncTimestamp := o.now()
	strategy := merge.DefaultStrategy(syncTimestamp)
	if sc.MergeStrategy != nil {
		strategy = *sc.MergeStrategy
	}
	mergeResult, err := merge.Merge(ctx, localMap, remoteMap, strategy, merge.SyncOption{
		CurrentTime:  syncTimestamp,
		LastSyncTime: sc.Watermarks.LastSyncTimestamp,
	}, nil)
	if err != nil {
		return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
	}

	if len(mergeResult.Deleted) > 0 {
		if err := o.store.Delete(ctx, mergeResult.Deleted); err != nil {
			return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
		}
		o.events.emit(Event{Type: EventBookmarksRemoved, ServiceID: serviceID, Removed: mergeResult.Deleted})
	}
	if err := o.store.Upsert(ctx, mergeResult.Merged); err != nil {
		return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
	}

	changed := len(mergeResult.Merged) > 0 || len(mergeResult.Deleted) > 0
	remoteWasEmpty := remoteMap == nil || len(remoteMap) == 0

	if changed || (remoteWasEmpty && len(mergeResult.Merged) > 0) {
		o.transition(serviceID, StateUploading)
		serialized, err := serializeMergedMap(mergeResult.Merged)
		if err != nil {
			return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
		}

		expected := downloadRemoteMeta
		if expected == nil {
			expected = initialRemoteMeta
		}
		newRemoteMeta, err := t.Upload(ctx, serialized, expected)
		if err != nil {
			if conflict, ok := err.(*transport.UploadConflict); ok {
				return &RoundResult{
					Status:     RoundConflict,
					Err:        conflict,
					Conflict:   &ConflictDetail{Expected: conflict.Expected, Detail: conflict.Detail},
					FinishedAt: finishedAt,
				}
			}
			return &RoundResult{Status: RoundError, Err: err, FinishedAt: finishedAt}
		}

		sc.Watermarks.LastSyncTimestamp = syncTimestamp
		sc.Watermarks.LastSyncMeta = remoteMetaToMap(watermarkMeta(newRemoteMeta, downloadRemoteMeta))
		if err := o.registry.Update(sc); err != nil {
			corelog.Warnf("orchestrator[%s]: failed to persist watermarks: %v", serviceID, err)
		}
	}

	return &RoundResult{
		Status:       RoundSuccess,
		MergedCount:  len(mergeResult.Merged),
		RemovedCount: len(mergeResult.Deleted),
		FinishedAt:   syncTimestamp,
	}
}

// transportFor returns the cached transport for sc, re-creating it if none
// is cached yet or the cached one's stored config differs (spec.md §4.F
// step 1).
func (o *Orchestrator) transportFor(ctx context.Context, sc config.ServiceConfig) (transport.Transport, error) {
	o.mu.Lock()
	t, ok := o.transports[sc.ID]
	prior, hadPrior := o.transportOf[sc.ID]
	o.mu.Unlock()

	if ok && hadPrior && reflect.DeepEqual(prior, sc) {
		return t, nil
	}

	if ok {
		t.Destroy(ctx) //nolint:errcheck
	}

	fresh, err := o.factory.New(ctx, sc)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.transports[sc.ID] = fresh
	o.transportOf[sc.ID] = sc
	o.mu.Unlock()

	return fresh, nil
}

// CheckAuthStatus obtains (instantiating if necessary) the transport for
// serviceID and delegates to its auth probe, if it implements one.
func (o *Orchestrator) CheckAuthStatus(ctx context.Context, serviceID string) (transport.AuthStatus, error) {
	sc, ok := o.registry.GetByID(serviceID)
	if !ok {
		return transport.AuthUnknown, &transport.ConfigError{ServiceID: serviceID, Reason: "unknown service"}
	}

	t, err := o.transportFor(ctx, sc)
	if err != nil {
		return transport.AuthError, err
	}

	probe, ok := t.(transport.AuthProbe)
	if !ok {
		return transport.AuthUnknown, nil
	}
	status, err := probe.GetAuthStatus(ctx)
	if err != nil {
		return transport.AuthError, err
	}
	return status, nil
}

// Destroy tears down every cached transport and clears state.
func (o *Orchestrator) Destroy(ctx context.Context) {
	o.mu.Lock()
	transports := o.transports
	o.transports = make(map[string]transport.Transport)
	o.transportOf = make(map[string]config.ServiceConfig)
	o.states = make(map[string]State)
	o.mu.Unlock()

	for _, t := range transports {
		t.Destroy(ctx) //nolint:errcheck
	}
	o.events.emit(Event{Type: EventDestroyed})
}

// parseRemoteMap turns a transport's raw download payload into a bookmarks
// map. A nil/empty payload means the remote resource does not exist yet,
// which is the "Remote: {}" case in spec.md's worked scenarios, not the
// "caller passed undefined" case merge.Merge special-cases — so this
// returns a present-but-empty map, never nil, letting the merge engine
// evaluate each local key's own validity instead of short-circuiting.
func parseRemoteMap(data *string) (map[bookmark.Key]*bookmark.Record, error) {
	if data == nil || *data == "" {
		return map[bookmark.Key]*bookmark.Record{}, nil
	}
	var store struct {
		Data map[bookmark.Key]*bookmark.Record `json:"data"`
	}
	// The payload may be either a bare bookmarks map or a full Store
	// envelope with a "data" field; try the bare shape first since it is
	// what every transport in this package actually produces.
	var bare map[bookmark.Key]*bookmark.Record
	if err := json.Unmarshal([]byte(*data), &bare); err == nil {
		return bare, nil
	}
	if err := json.Unmarshal([]byte(*data), &store); err != nil {
		return nil, &transport.ParseError{Transport: "orchestrator", Err: err}
	}
	return store.Data, nil
}

func serializeMergedMap(m map[bookmark.Key]*bookmark.Record) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// watermarkMeta picks the RemoteMeta to persist as the watermark after a
// successful upload: newMeta when Upload actually reported one, falling
// back to downloadMeta otherwise (spec.md §4.F step 5, "newRemoteMeta or
// downloadRemoteMeta"). Some transports (e.g. httpjson, when the remote
// envelope carries none of timestamp/version/sha) return a zero RemoteMeta
// from Upload; treating that as informative would overwrite a good
// pre-upload watermark with an empty one.
func watermarkMeta(newMeta transport.RemoteMeta, downloadMeta *transport.RemoteMeta) transport.RemoteMeta {
	if newMeta.Timestamp != nil || newMeta.Version != nil || newMeta.SHA != nil {
		return newMeta
	}
	if downloadMeta != nil {
		return *downloadMeta
	}
	return newMeta
}

func remoteMetaToMap(m transport.RemoteMeta) map[string]any {
	out := make(map[string]any)
	if m.Timestamp != nil {
		out["timestamp"] = *m.Timestamp
	}
	if m.Version != nil {
		out["version"] = *m.Version
	}
	if m.SHA != nil {
		out["sha"] = *m.SHA
	}
	return out
}
