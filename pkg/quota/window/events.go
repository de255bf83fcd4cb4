package window

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// UsageEvent is one consumption record. Events are immutable after creation
// and live in a bounded ring; they exist for observability, not accounting.
type UsageEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Timestamp is when the usage was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Amount is the recorded usage in the governor's native units
	// (calls, or micro-dollars for spend).
	Amount int64 `json:"amount"`

	// Metadata carries caller-supplied context (operation name, matter ID).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EventLog is a fixed-capacity ring of UsageEvents; the oldest entry is
// evicted first. Appends are a single push-with-trim under one lock, so
// interleaved writers never corrupt the ring, though the exact ordering of
// near-simultaneous entries is not guaranteed.
type EventLog struct {
	events []UsageEvent
	head   int // index of the oldest entry
	size   int
	mu     sync.Mutex
}

// NewEventLog creates an event log holding at most capacity entries.
// Capacity must be positive.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &EventLog{
		events: make([]UsageEvent, capacity),
	}
}

// Append records an event, evicting the oldest entry when full, and returns
// the stored event with its generated ID.
func (l *EventLog) Append(ts time.Time, amount int64, metadata map[string]string) UsageEvent {
	ev := UsageEvent{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Amount:    amount,
		Metadata:  metadata,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size < len(l.events) {
		l.events[(l.head+l.size)%len(l.events)] = ev
		l.size++
	} else {
		l.events[l.head] = ev
		l.head = (l.head + 1) % len(l.events)
	}

	return ev
}

// Recent returns up to n events, newest first. A non-positive n returns all
// retained events.
func (l *EventLog) Recent(n int) []UsageEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > l.size {
		n = l.size
	}

	out := make([]UsageEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.head + l.size - 1 - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Last returns the most recent event, or false when the log is empty.
func (l *EventLog) Last() (UsageEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size == 0 {
		return UsageEvent{}, false
	}
	idx := (l.head + l.size - 1) % len(l.events)
	return l.events[idx], true
}
