// Package events provides run lifecycle events and fan-out to live subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	RunQueued      EventType = "RUN_QUEUED"
	RunStarted     EventType = "RUN_STARTED"
	FrameSimulated EventType = "FRAME_SIMULATED"
	RunCompleted   EventType = "RUN_COMPLETED"
	RunFailed      EventType = "RUN_FAILED"
	ErrorOccurred  EventType = "ERROR_OCCURRED"
)

// Terminal reports whether no further events follow for the run
func (t EventType) Terminal() bool {
	return t == RunCompleted || t == RunFailed
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
	RunID     string                 `json:"run_id,omitempty"`
}

// Filter selects the events a subscriber receives
type Filter func(event *Event) bool

// ForRun selects the events of one run
func ForRun(runID string) Filter {
	return func(event *Event) bool {
		return event.RunID == runID
	}
}

type subscriber struct {
	ch     chan Event
	filter Filter
}

// Manager handles event emission, logging and delivery to subscribers
type Manager struct {
	log    zerolog.Logger
	subs   map[int]*subscriber
	nextID int
	mu     sync.RWMutex
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:  log.With().Str("service", "events").Logger(),
		subs: make(map[int]*subscriber),
	}
}

// Emit emits an event
func (m *Manager) Emit(eventType EventType, module, runID string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
		RunID:     runID,
	}

	// Frame events are high volume
	logEvent := m.log.Info()
	if eventType == FrameSimulated {
		logEvent = m.log.Debug()
	}
	if logEvent.Enabled() {
		eventJSON, _ := json.Marshal(event)
		logEvent.
			Str("event_type", string(eventType)).
			Str("module", module).
			RawJSON("event", eventJSON).
			Msg("Event emitted")
	}

	m.publish(&event)
}

// EmitError emits an error event
func (m *Manager) EmitError(module, runID string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error": err.Error(),
	}
	for k, v := range context {
		data[k] = v
	}
	m.Emit(ErrorOccurred, module, runID, data)
}

// Subscribe registers a subscriber. Events are dropped for a subscriber
// whose buffer is full, except terminal events, which evict the oldest
// buffered event instead. The returned function unsubscribes and closes the channel.
func (m *Manager) Subscribe(filter Filter, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 100
	}
	sub := &subscriber{ch: make(chan Event, buffer), filter: filter}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = sub
	m.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Subscribers returns the number of live subscribers
func (m *Manager) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

func (m *Manager) publish(event *Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subs {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		if deliver(sub.ch, event) {
			continue
		}
		if event.Type.Terminal() {
			select {
			case <-sub.ch:
			default:
			}
			if deliver(sub.ch, event) {
				continue
			}
		}
		m.log.Warn().
			Str("event_type", string(event.Type)).
			Msg("Event channel full, dropping event")
	}
}

func deliver(ch chan Event, event *Event) bool {
	select {
	case ch <- *event:
		return true
	default:
		return false
	}
}
