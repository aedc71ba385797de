package store

import (
	"sync"

	"github.com/orderflow/orderrelay/pkg/types"
)

// DefaultCapacity is the number of notifications a Buffer keeps.
const DefaultCapacity = 1000

// Buffer is a thread-safe, capacity-bounded FIFO of notifications with
// duplicate suppression.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	messages []types.Notification

	// seen and order form the dedup set; order records insertion order so
	// trimming keeps the newest keys.
	seen  map[string]struct{}
	order []string
}

// New creates a Buffer holding at most capacity notifications. A capacity
// below 2 falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		messages: make([]types.Notification, 0, capacity),
		seen:     make(map[string]struct{}),
	}
}

// Key returns the dedup key for n.
func Key(n types.Notification) string {
	return n.OrderID + "\x00" + n.Message + "\x00" + n.Timestamp
}

// Add appends n unless its key was already seen. It reports whether n was
// stored. When the buffer is full the oldest notification is evicted.
func (b *Buffer) Add(n types.Notification) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := Key(n)
	if _, dup := b.seen[k]; dup {
		return false
	}
	b.seen[k] = struct{}{}
	b.order = append(b.order, k)

	b.messages = append(b.messages, n)
	if over := len(b.messages) - b.capacity; over > 0 {
		// Shift in place so the backing array does not grow without bound.
		copy(b.messages, b.messages[over:])
		b.messages = b.messages[:b.capacity]
	}

	if len(b.order) > b.capacity {
		b.trimSeen()
	}
	return true
}

// trimSeen keeps only the newest capacity/2 dedup keys. Caller holds b.mu.
func (b *Buffer) trimSeen() {
	keep := b.order[len(b.order)-b.capacity/2:]
	order := make([]string, len(keep), b.capacity)
	copy(order, keep)

	seen := make(map[string]struct{}, len(order))
	for _, k := range order {
		seen[k] = struct{}{}
	}
	b.order = order
	b.seen = seen
}

// Messages returns a copy of the buffered notifications, oldest first.
func (b *Buffer) Messages() []types.Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.Notification, len(b.messages))
	copy(out, b.messages)
	return out
}

// Len returns the number of buffered notifications.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}

// SeenLen returns the size of the dedup set.
func (b *Buffer) SeenLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Capacity returns the buffer's bound.
func (b *Buffer) Capacity() int { return b.capacity }

// Clear empties both the buffer and the dedup set.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = b.messages[:0]
	b.seen = make(map[string]struct{})
	b.order = nil
}
