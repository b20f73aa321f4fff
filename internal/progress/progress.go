package progress

import (
	"encoding/json"
	"sync"
	"time"
)

// Stage is where a queued source is in its lifecycle
type Stage string

const (
	StageQueued    Stage = "queued"
	StageResolving Stage = "resolving"
	StageResolved  Stage = "resolved"
	StageStreaming Stage = "streaming"
	StageComplete  Stage = "complete"
	StageFailed    Stage = "failed"
)

// Event represents a progress event
type Event struct {
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Bytes     int64     `json:"bytes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Tracker records the lifecycle of one source and fans events out to
// listeners. Listeners run synchronously on the updating goroutine.
type Tracker struct {
	mu        sync.RWMutex
	stage     Stage
	message   string
	bytes     int64
	err       error
	updatedAt time.Time
	listeners []func(Event)
}

// NewTracker creates a tracker in the queued stage
func NewTracker() *Tracker {
	return &Tracker{
		stage:     StageQueued,
		updatedAt: time.Now(),
	}
}

// AddListener adds a new progress event listener
func (t *Tracker) AddListener(listener func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

// Update moves the tracker to stage and notifies listeners
func (t *Tracker) Update(stage Stage, message string) {
	t.mu.Lock()
	t.stage = stage
	t.message = message
	t.updatedAt = time.Now()
	event := t.eventLocked()
	t.mu.Unlock()

	t.notify(event)
}

// AddBytes counts streamed bytes. Listeners are not notified; byte counts
// show up in the next event and in State.
func (t *Tracker) AddBytes(n int64) {
	t.mu.Lock()
	t.bytes += n
	t.mu.Unlock()
}

// SetError moves the tracker to the failed stage
func (t *Tracker) SetError(err error) {
	t.mu.Lock()
	t.stage = StageFailed
	t.err = err
	t.message = err.Error()
	t.updatedAt = time.Now()
	event := t.eventLocked()
	t.mu.Unlock()

	t.notify(event)
}

func (t *Tracker) notify(event Event) {
	t.mu.RLock()
	listeners := append([]func(Event){}, t.listeners...)
	t.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// State returns the current progress state
func (t *Tracker) State() Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.eventLocked()
}

func (t *Tracker) eventLocked() Event {
	event := Event{
		Stage:     t.stage,
		Message:   t.message,
		Bytes:     t.bytes,
		Timestamp: t.updatedAt,
	}
	if t.err != nil {
		event.Error = t.err.Error()
	}
	return event
}

// MarshalJSON implements json.Marshaler for Event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Alias:     (*Alias)(&e),
	})
}
