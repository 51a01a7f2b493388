// Package events provides the in-process event bus used for sync progress
// notifications and the SSE stream.
package events

import (
	"sync"
	"time"
)

// EventType identifies a class of system event
type EventType string

const (
	// SyncStarted is emitted once when a sync run begins
	SyncStarted EventType = "sync.started"
	// SyncProgress is emitted after each date completes during a sync run
	SyncProgress EventType = "sync.progress"
	// SyncComplete is emitted when a sync run finishes (including no-op runs)
	SyncComplete EventType = "sync.complete"
	// SyncFailed is emitted when a sync run halts on an error
	SyncFailed EventType = "sync.failed"
)

// Event is a single emitted event
type Event struct {
	Type      EventType   `json:"type"`
	Module    string      `json:"module"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventData is implemented by typed event payloads
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// SyncStartedData contains data for SyncStarted events
type SyncStartedData struct {
	RunID     string `json:"run_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TotalDays int    `json:"total_days"`
}

// EventType returns the event type for SyncStartedData
func (d *SyncStartedData) EventType() EventType {
	return SyncStarted
}

// SyncProgressData contains data for SyncProgress events
type SyncProgressData struct {
	RunID  string `json:"run_id"`
	Date   string `json:"date"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Steps  int    `json:"steps"`
	Points int    `json:"points"`
}

// EventType returns the event type for SyncProgressData
func (d *SyncProgressData) EventType() EventType {
	return SyncProgress
}

// SyncCompleteData contains data for SyncComplete events
type SyncCompleteData struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"` // "complete" or "up_to_date"
	DaysAdded int    `json:"days_added"`
}

// EventType returns the event type for SyncCompleteData
func (d *SyncCompleteData) EventType() EventType {
	return SyncComplete
}

// SyncFailedData contains data for SyncFailed events
type SyncFailedData struct {
	RunID string `json:"run_id"`
	Date  string `json:"date"` // Date that was being processed when the run halted
	Error string `json:"error"`
}

// EventType returns the event type for SyncFailedData
func (d *SyncFailedData) EventType() EventType {
	return SyncFailed
}

// Handler is called for each event delivered to a subscriber
type Handler func(*Event)

// Bus is a simple fan-out event bus. Emission never blocks on subscribers:
// handlers are invoked synchronously and must be fast.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]Handler
	nextID      int
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]Handler),
	}
}

// Subscribe registers a handler for all events and returns an unsubscribe function
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// EmitTyped emits an event with a typed payload
func (b *Bus) EmitTyped(module string, data EventData) {
	b.emit(&Event{
		Type:      data.EventType(),
		Module:    module,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func (b *Bus) emit(event *Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
