package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventType represents the type of a room lifecycle event
type EventType string

const (
	TypeRoomCreated       EventType = "RoomCreated"
	TypeGameStarted       EventType = "GameStarted"
	TypeFinalRoundStarted EventType = "FinalRoundStarted"
	TypeGameOver          EventType = "GameOver"
	TypeRoomClosed        EventType = "RoomClosed"
)

// Event is a lifecycle event ready for publishing
type Event struct {
	ID         uuid.UUID
	Type       EventType
	RoomCode   string
	OccurredAt time.Time
	Payload    json.RawMessage
}

// New builds an event with a fresh id and a JSON encoded payload
func New(eventType EventType, roomCode string, occurredAt time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		RoomCode:   roomCode,
		OccurredAt: occurredAt,
		Payload:    data,
	}, nil
}

// Envelope is the wire form of an event
func (e Event) Envelope() ([]byte, error) {
	env := map[string]interface{}{
		"eventId":   e.ID.String(),
		"eventType": e.Type,
		"roomCode":  e.RoomCode,
		"timestamp": e.OccurredAt.UTC(),
		"payload":   e.Payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Publisher sends lifecycle events to an external bus
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the log instead of a bus. Used when no
// NATS server is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Str("room", event.RoomCode).
		RawJSON("payload", event.Payload).
		Msg("room event")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
