// Package reqlog keeps a bounded history of the requests seen by the mock
// server, for the log viewer.
package reqlog

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one request/response pair.
type Entry struct {
	ID          string          `json:"id"`
	Time        time.Time       `json:"time"`
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	Method      string          `json:"method"`
	Body        json.RawMessage `json:"body,omitempty"`
	Status      int             `json:"status"`
	Response    json.RawMessage `json:"response,omitempty"`
	DurationMs  int64           `json:"durationMs"`
	Intercepted bool            `json:"intercepted"`
	Fault       string          `json:"fault,omitempty"`
}

// Log is a fixed-capacity ring of entries.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// New creates a log holding at most capacity entries.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1
	}
	return &Log{entries: make([]Entry, capacity)}
}

// Record appends e, evicting the oldest entry when full. Missing ID and Time
// are filled in.
func (l *Log) Record(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if len(e.Body) > 0 && !json.Valid(e.Body) {
		e.Body, _ = json.Marshal(string(e.Body))
	}
	if len(e.Response) > 0 && !json.Valid(e.Response) {
		e.Response, _ = json.Marshal(string(e.Response))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	return e
}

// List returns the entries oldest first.
func (l *Log) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]Entry(nil), l.entries[:l.next]...)
	}
	out := make([]Entry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	return append(out, l.entries[:l.next]...)
}

// Len reports how many entries are held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.entries)
	l.next = 0
	l.full = false
}
