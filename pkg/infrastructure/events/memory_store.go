package events

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

type subscription struct {
	id      uuid.UUID
	types   []string
	handler Handler
}

// MemoryStore keeps every stream in memory. Subscribers are notified
// synchronously after the append, outside the store lock, so a handler
// may read the store. A failing handler is logged and does not fail the
// append.
type MemoryStore struct {
	mutex         sync.RWMutex
	streams       map[string][]Event
	allEvents     []Event
	subscriptions []subscription
	logger        logr.Logger
}

func NewMemoryStore(logger logr.Logger) *MemoryStore {
	return &MemoryStore{
		streams: make(map[string][]Event),
		logger:  logger,
	}
}

func (s *MemoryStore) Append(streamID string, event Event) (Event, error) {
	if streamID == "" {
		return nil, fmt.Errorf("stream ID cannot be empty")
	}
	if event == nil || event.Type() == "" {
		return nil, fmt.Errorf("event type cannot be empty")
	}

	s.mutex.Lock()
	stored := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: len(s.streams[streamID]) + 1,
	}
	s.streams[streamID] = append(s.streams[streamID], stored)
	s.allEvents = append(s.allEvents, stored)
	handlers := s.handlersFor(stored.EventType)
	s.mutex.Unlock()

	for _, h := range handlers {
		if err := h.Handle(stored); err != nil {
			s.logger.Error(err, "Event handler failed", "type", stored.EventType, "stream", streamID)
		}
	}
	return stored, nil
}

func (s *MemoryStore) handlersFor(eventType string) []Handler {
	var out []Handler
	for _, sub := range s.subscriptions {
		if (len(sub.types) == 0 || slices.Contains(sub.types, eventType)) && sub.handler.CanHandle(eventType) {
			out = append(out, sub.handler)
		}
	}
	return out
}

// ReadStream returns the events of a stream starting at fromVersion
func (s *MemoryStore) ReadStream(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := s.streams[streamID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return []Event{}, nil
	}
	return slices.Clone(events[fromVersion-1:]), nil
}

// ReadAll returns events of every stream in append order
func (s *MemoryStore) ReadAll(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}
	return slices.Clone(s.allEvents[fromPosition:]), nil
}

// Subscribe registers handler for the given types, or for every type
// when eventTypes is empty.
func (s *MemoryStore) Subscribe(eventTypes []string, handler Handler) (uuid.UUID, error) {
	if handler == nil {
		return uuid.Nil, fmt.Errorf("handler cannot be nil")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := uuid.New()
	s.subscriptions = append(s.subscriptions, subscription{
		id:      id,
		types:   slices.Clone(eventTypes),
		handler: handler,
	})
	return id, nil
}

func (s *MemoryStore) Unsubscribe(id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, sub := range s.subscriptions {
		if sub.id == id {
			s.subscriptions = slices.Delete(s.subscriptions, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("subscription not found: %s", id)
}
