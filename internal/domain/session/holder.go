package session

import "sync"

// EventKind distinguishes session lifecycle notifications.
type EventKind int

const (
	// Activated is emitted after a session has been cached.
	Activated EventKind = iota
	// Deactivated is emitted after the cached session has been cleared.
	Deactivated
)

// Event is delivered to listeners when the cached session changes.
type Event struct {
	Kind EventKind
	// Session is the new session for Activated and the cleared one for Deactivated.
	Session Session
}

// Listener receives lifecycle events. Listeners are called synchronously,
// outside the holder lock, in subscription order.
type Listener func(Event)

// Holder is the session context threaded through the Session Store, the
// Route Gate and the Location Sampler. It holds at most one Session.
// Only the Session Store writes to it.
type Holder struct {
	mu        sync.RWMutex
	current   *Session
	listeners map[int]Listener
	order     []int
	nextID    int

	notifyMu sync.Mutex
}

// NewHolder returns an empty holder.
func NewHolder() *Holder {
	return &Holder{listeners: make(map[int]Listener)}
}

// Current returns a copy of the cached session.
func (h *Holder) Current() (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return Session{}, false
	}
	return *h.current, true
}

// Present reports whether a session is cached.
func (h *Holder) Present() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current != nil
}

// Set caches s, replacing any previous session. Replacing a session emits
// Deactivated for the old one before Activated for the new one.
func (h *Holder) Set(s Session) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	prev := h.current
	next := s
	h.current = &next
	listeners := h.snapshotLocked()
	h.mu.Unlock()

	if prev != nil {
		emit(listeners, Event{Kind: Deactivated, Session: *prev})
	}
	emit(listeners, Event{Kind: Activated, Session: next})
}

// Clear drops the cached session and returns it. Clearing an empty holder
// is a no-op and emits nothing.
func (h *Holder) Clear() (Session, bool) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	prev := h.current
	h.current = nil
	listeners := h.snapshotLocked()
	h.mu.Unlock()

	if prev == nil {
		return Session{}, false
	}
	emit(listeners, Event{Kind: Deactivated, Session: *prev})
	return *prev, true
}

// Subscribe registers l and returns a function that removes it.
func (h *Holder) Subscribe(l Listener) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = l
	h.order = append(h.order, id)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
		for i, v := range h.order {
			if v == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
}

func (h *Holder) snapshotLocked() []Listener {
	out := make([]Listener, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.listeners[id])
	}
	return out
}

func emit(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l(ev)
	}
}
