// Package activity keeps a bounded, in-process log of item mutations.
package activity

import (
	"sync"
	"time"

	"itemcrud/internal/item"
)

// DefaultCapacity is the number of entries kept when no capacity is given.
const DefaultCapacity = 100

// Action is the kind of mutation an entry records.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Entry is one recorded mutation. Entries are never modified after Record.
type Entry struct {
	Timestamp string     `json:"timestamp"`
	Action    Action     `json:"action"`
	Item      *item.Item `json:"item"`
}

// Recorder is a FIFO log that evicts its oldest entry once it holds more
// than its capacity. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	now      func() time.Time
}

// NewRecorder returns a recorder holding at most capacity entries.
// A capacity below 1 means DefaultCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		entries:  make([]Entry, 0, capacity+1),
		capacity: capacity,
		now:      time.Now,
	}
}

// Record appends a snapshot of it.
func (r *Recorder) Record(action Action, it *item.Item) {
	e := Entry{Action: action, Item: it.Clone()}

	r.mu.Lock()
	defer r.mu.Unlock()

	e.Timestamp = r.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	r.entries = append(r.entries, e)
	if len(r.entries) > r.capacity {
		// Shift in place so the backing array does not grow.
		n := copy(r.entries, r.entries[1:])
		r.entries[n] = Entry{}
		r.entries = r.entries[:n]
	}
}

// ReadAll returns every entry, oldest first. The returned slice belongs to
// the caller; the items it points to must be treated as read-only.
func (r *Recorder) ReadAll() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(make([]Entry, 0, len(r.entries)), r.entries...)
}

// Len reports the number of entries currently held.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Capacity reports the maximum number of entries held.
func (r *Recorder) Capacity() int {
	return r.capacity
}
