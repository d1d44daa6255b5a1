// Package events is an in-process bus for task lifecycle notifications,
// with an SSE hub for pushing them to connected clients.
package events

import (
	"sync"
	"time"

	"inkwell/store"
)

// Event types published by the executor and the API layer.
const (
	TypeTaskCreated = "task.created"
	TypeTaskStatus  = "task.status"
	TypeTaskDelta   = "task.delta"
	TypeTaskDeleted = "task.deleted"
	TypeDocChanged  = "doc.changed"
)

// Event is a single lifecycle notification.
type Event struct {
	Type      string       `json:"type"`
	ProjectID string       `json:"projectId"`
	TaskID    string       `json:"taskId,omitempty"`
	DocID     string       `json:"docId,omitempty"`
	Status    store.Status `json:"status,omitempty"`
	Delta     string       `json:"delta,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Handler receives published events.
type Handler func(Event)

type handlerEntry struct {
	id      int
	handler Handler
}

// Bus is a thread-safe in-process event bus. Subscriptions are scoped to a
// project; subscribing with an empty project ID receives every event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]handlerEntry // projectID -> handlers, "" for all
	history  []Event
	maxHist  int
	counter  int
}

// NewBus creates a Bus with a 1000-event history cap.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]handlerEntry),
		maxHist:  1000,
	}
}

// Publish delivers an event to subscribers of its project and to
// all-project subscribers. Handlers run synchronously, outside the lock.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	b.history = append(b.history, ev)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}
	var targets []Handler
	for _, e := range b.handlers[ev.ProjectID] {
		targets = append(targets, e.handler)
	}
	if ev.ProjectID != "" {
		for _, e := range b.handlers[""] {
			targets = append(targets, e.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range targets {
		h(ev)
	}
}

// Subscribe registers a handler for events in projectID ("" for all projects).
// The returned function unsubscribes the handler.
func (b *Bus) Subscribe(projectID string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counter++
	id := b.counter
	b.handlers[projectID] = append(b.handlers[projectID], handlerEntry{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[projectID]
		filtered := entries[:0]
		for _, e := range entries {
			if e.id != id {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			delete(b.handlers, projectID)
		} else {
			b.handlers[projectID] = filtered
		}
	}
}

// History returns the most recent limit events for projectID, oldest first.
// An empty projectID returns events from every project; limit <= 0 returns all.
func (b *Bus) History(projectID string, limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for i := len(b.history) - 1; i >= 0; i-- {
		ev := b.history[i]
		if projectID == "" || ev.ProjectID == projectID {
			result = append(result, ev)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	for l, r := 0, len(result)-1; l < r; l, r = l+1, r-1 {
		result[l], result[r] = result[r], result[l]
	}
	return result
}
