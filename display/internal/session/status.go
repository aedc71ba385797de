package session

import "sync"

// Status is the display's view of its channel connection.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
)

// StatusWatcher holds the current Status and notifies subscribers when it
// changes. The zero value is not usable; call NewStatusWatcher.
type StatusWatcher struct {
	mu     sync.Mutex
	value  Status
	nextID int
	subs   map[int]func(Status)
}

// NewStatusWatcher returns a watcher in the connecting state.
func NewStatusWatcher() *StatusWatcher {
	return &StatusWatcher{value: StatusConnecting, subs: make(map[int]func(Status))}
}

// Get returns the current status.
func (w *StatusWatcher) Get() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set stores s and calls every subscriber if it differs from the previous
// value. Subscribers run on the caller's goroutine, outside the lock.
func (w *StatusWatcher) Set(s Status) {
	w.mu.Lock()
	if w.value == s {
		w.mu.Unlock()
		return
	}
	w.value = s
	fns := make([]func(Status), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Subscribe registers fn for future changes and returns a function that
// removes it.
func (w *StatusWatcher) Subscribe(fn func(Status)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}
