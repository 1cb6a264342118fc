package orchestrator

import "sync"

// EventType names a lifecycle event an orchestrator round emits (spec.md
// §4.F, §5). Events within a single round are emitted in the order
// syncStart -> statusChange* -> (bookmarksRemoved?) -> (syncSuccess |
// syncConflict | error) -> syncEnd.
type EventType string

const (
	EventStatusChange     EventType = "statusChange"
	EventSyncStart        EventType = "syncStart"
	EventBookmarksRemoved EventType = "bookmarksRemoved"
	EventSyncSuccess      EventType = "syncSuccess"
	EventSyncConflict     EventType = "syncConflict"
	EventError            EventType = "error"
	EventSyncEnd          EventType = "syncEnd"
	EventInfo             EventType = "info"
	EventDestroyed        EventType = "destroyed"
)

// Event is one emitted lifecycle occurrence.
type Event struct {
	Type      EventType
	ServiceID string
	State     State
	Message   string
	Removed   []string
	Result    *RoundResult
	Err       error
}

// Listener observes emitted events.
type Listener func(Event)

// emitter is a single mutex-guarded listener list, with no external
// event-bus dependency for an in-process fan-out. It is not keyed by topic:
// every registered listener receives every event and filters on Type itself.
type emitter struct {
	mu        sync.Mutex
	listeners []Listener
}

func newEmitter() *emitter {
	return &emitter{}
}

// On registers a listener for every event the orchestrator emits.
func (e *emitter) On(l Listener) (unsubscribe func()) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	idx := len(e.listeners) - 1
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if idx < len(e.listeners) {
			e.listeners[idx] = nil
		}
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	listeners := append([]Listener(nil), e.listeners...)
	e.mu.Unlock()

	for _, l := range listeners {
		if l != nil {
			l(ev)
		}
	}
}
