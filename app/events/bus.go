package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/content-pilot/app/monitoring"
)

// EventType identifies the kind of state transition an event reports
type EventType string

const (
	EventDirectionUpdated EventType = "direction_updated"
	EventArticleCreated   EventType = "article_created"
	EventTaskCreated      EventType = "task_created"
	EventTaskUpdate       EventType = "task_update"
	EventPilotCycle       EventType = "pilot_cycle"
	EventNotification     EventType = "notification"
)

// Event is one state transition notice. Delivery is best-effort: a missed
// event is always recoverable by polling the entity's current state.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	EntityID  string            `json:"entity_id,omitempty"`
	Status    string            `json:"status,omitempty"`
	Message   string            `json:"message,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewEvent creates an event for an entity state transition
func NewEvent(eventType EventType, entityID, status, message string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		EntityID:  entityID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

type subscriber struct {
	id      string
	channel chan *Event
	types   map[EventType]bool // empty = all types
	closed  bool
	mu      sync.RWMutex
}

func (s *subscriber) wants(eventType EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	return s.types[eventType]
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}

// trySend delivers without ever blocking a publisher for long; a full or
// closed subscriber drops the event.
func (s *subscriber) trySend(event *Event, timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.channel <- event:
		return true
	case <-timer.C:
		return false
	}
}

// Metrics tracks bus delivery statistics
type Metrics struct {
	Published int64
	Delivered int64
	Dropped   int64
}

// Bus fans out state transition events to subscribers. The publishing
// state machines never depend on a subscriber being present.
type Bus struct {
	subscribers []*subscriber
	mu          sync.RWMutex
	bufferSize  int
	sendTimeout time.Duration
	closed      bool

	published int64
	delivered int64
	dropped   int64
}

// NewBus creates an event bus. Subscriber channels hold bufferSize events.
func NewBus(bufferSize int, sendTimeout time.Duration) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Millisecond
	}

	return &Bus{
		bufferSize:  bufferSize,
		sendTimeout: sendTimeout,
	}
}

// Publish delivers an event to every interested subscriber
func (b *Bus) Publish(event *Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]*subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	atomic.AddInt64(&b.published, 1)
	monitoring.RecordEventPublished()

	for _, sub := range subs {
		if !sub.wants(event.Type) {
			continue
		}
		if sub.trySend(event, b.sendTimeout) {
			atomic.AddInt64(&b.delivered, 1)
		} else {
			atomic.AddInt64(&b.dropped, 1)
			monitoring.RecordEventDropped()
		}
	}
}

// Emit builds and publishes an event in one call
func (b *Bus) Emit(eventType EventType, entityID, status, message string) {
	b.Publish(NewEvent(eventType, entityID, status, message))
}

// Notify publishes a notification event carrying a persistable title and body
func (b *Bus) Notify(ntype, title, body, level string) {
	event := NewEvent(EventNotification, "", level, body)
	event.Data = map[string]string{"ntype": ntype, "title": title}
	b.Publish(event)
}

// Subscribe returns a channel receiving events of the given types; with no
// types it receives everything. The caller must Unsubscribe when done.
func (b *Bus) Subscribe(types ...EventType) <-chan *Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan *Event)
		close(ch)
		return ch
	}

	wanted := make(map[EventType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	sub := &subscriber{
		id:      uuid.New().String(),
		channel: make(chan *Event, b.bufferSize),
		types:   wanted,
	}
	b.subscribers = append(b.subscribers, sub)

	return sub.channel
}

// Unsubscribe removes a subscriber by its channel
func (b *Bus) Unsubscribe(ch <-chan *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub.channel == ch {
			sub.close()
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Metrics returns a snapshot of the delivery counters
func (b *Bus) Metrics() Metrics {
	return Metrics{
		Published: atomic.LoadInt64(&b.published),
		Delivered: atomic.LoadInt64(&b.delivered),
		Dropped:   atomic.LoadInt64(&b.dropped),
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close shuts down the bus and closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, sub := range b.subscribers {
		sub.close()
	}
	b.subscribers = nil
}
