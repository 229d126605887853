// Package events records what happened during a planning run as an
// append-only stream per run, so a run can be replayed or audited after
// the fact.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Event interface {
	Type() string
	StreamID() string
	Data() any
	Timestamp() time.Time
	Version() int
}

// Handler receives the events it subscribed to
type Handler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// HandlerFunc adapts a function to a Handler for every event type
type HandlerFunc func(Event) error

func (f HandlerFunc) Handle(event Event) error { return f(event) }

func (f HandlerFunc) CanHandle(string) bool { return true }

// Store persists event streams. Versions are assigned by the store and
// start at 1 within each stream.
type Store interface {
	Append(streamID string, event Event) (Event, error)
	ReadStream(streamID string, fromVersion int) ([]Event, error)
	ReadAll(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler Handler) (uuid.UUID, error)
	Unsubscribe(id uuid.UUID) error
}

type BaseEvent struct {
	EventType    string    `json:"type"`
	Stream       string    `json:"stream"`
	EventData    any       `json:"data"`
	EventTime    time.Time `json:"time"`
	EventVersion int       `json:"version"`
}

func (e BaseEvent) Type() string {
	return e.EventType
}

func (e BaseEvent) StreamID() string {
	return e.Stream
}

func (e BaseEvent) Data() any {
	return e.EventData
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func (e BaseEvent) Version() int {
	return e.EventVersion
}

func NewEvent(eventType, streamID string, data any) Event {
	return BaseEvent{
		EventType: eventType,
		Stream:    streamID,
		EventData: data,
		EventTime: time.Now(),
	}
}
