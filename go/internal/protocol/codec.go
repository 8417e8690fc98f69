package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/egoritak/yesbut/go/internal/game"
	"github.com/egoritak/yesbut/go/internal/room"
)

var (
	// ErrUnknownAction is returned for an envelope type outside the action set
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidPayload is returned when an action's data is malformed or incomplete
	ErrInvalidPayload = errors.New("invalid payload")
)

// Envelope is the wire frame for both directions
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses and validates one inbound frame
func Decode(frame []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var (
		act Action
		err error
	)
	switch ActionType(env.Type) {
	case ActionCreateRoom:
		var a CreateRoom
		err = unmarshalData(env.Data, &a)
		a.Name = strings.TrimSpace(a.Name)
		act = a
	case ActionJoinRoom:
		var a JoinRoom
		err = unmarshalData(env.Data, &a)
		a.Code = room.NormalizeCode(a.Code)
		a.Name = strings.TrimSpace(a.Name)
		act = a
	case ActionStartGame:
		var a StartGame
		err = unmarshalData(env.Data, &a)
		a.Code = room.NormalizeCode(a.Code)
		act = a
	case ActionPlayCard:
		var a PlayCard
		err = unmarshalData(env.Data, &a)
		a.Code = room.NormalizeCode(a.Code)
		act = a
	case ActionClaimCard:
		var a ClaimCard
		err = unmarshalData(env.Data, &a)
		a.Code = room.NormalizeCode(a.Code)
		a.CardID = strings.TrimSpace(a.CardID)
		if err == nil && a.CardID == "" {
			err = fmt.Errorf("%w: cardId is required", ErrInvalidPayload)
		}
		act = a
	case ActionMakePair:
		var a MakePair
		err = unmarshalData(env.Data, &a)
		a.Code = room.NormalizeCode(a.Code)
		if a.CardA == "" {
			a.CardA = a.YesID
		}
		if a.CardB == "" {
			a.CardB = a.NoID
		}
		a.CardA = strings.TrimSpace(a.CardA)
		a.CardB = strings.TrimSpace(a.CardB)
		if err == nil && (a.CardA == "" || a.CardB == "") {
			err = fmt.Errorf("%w: two card ids are required", ErrInvalidPayload)
		}
		act = a
	case ActionPassTurn:
		var a PassTurn
		err = unmarshalData(env.Data, &a)
		a.Code = room.NormalizeCode(a.Code)
		act = a
	case ActionContinueGame:
		var a ContinueGame
		err = unmarshalData(env.Data, &a)
		a.Code = room.NormalizeCode(a.Code)
		act = a
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}
	if err != nil {
		return nil, err
	}

	// A join without a code still reaches the registry, which answers
	// with room-not-found
	if _, join := act.(JoinRoom); join {
		return act, nil
	}
	if ra, ok := act.(RoomAction); ok && ra.RoomCode() == "" {
		return nil, fmt.Errorf("%w: code is required for %s", ErrInvalidPayload, act.Type())
	}
	return act, nil
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// Encode renders an outbound event as a wire frame
func Encode(ev game.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Type(), err)
	}
	frame, err := json.Marshal(Envelope{Type: string(ev.Type()), Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return frame, nil
}
