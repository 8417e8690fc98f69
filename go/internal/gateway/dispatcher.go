package gateway

import (
	"errors"

	"github.com/egoritak/yesbut/go/internal/game"
	"github.com/egoritak/yesbut/go/internal/protocol"
	"github.com/egoritak/yesbut/go/internal/room"
	"github.com/rs/zerolog/log"
)

// RoomNotFoundMessage is the text of the only user-visible error
const RoomNotFoundMessage = "Room not found"

// Dispatcher routes decoded client actions to the registry and sessions
type Dispatcher struct {
	registry *room.Registry
	notifier game.Notifier
}

// NewDispatcher creates a dispatcher. Errors are reported to players
// through notifier.
func NewDispatcher(registry *room.Registry, notifier game.Notifier) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		notifier: notifier,
	}
}

// Handle decodes one inbound frame and applies it
func (d *Dispatcher) Handle(playerID string, frame []byte) {
	action, err := protocol.Decode(frame)
	if err != nil {
		log.Debug().
			Err(err).
			Str("player_id", playerID).
			Msg("dropping malformed frame")
		return
	}
	d.Dispatch(playerID, action)
}

// Dispatch applies a decoded action on behalf of a player
func (d *Dispatcher) Dispatch(playerID string, action protocol.Action) {
	switch a := action.(type) {
	case protocol.CreateRoom:
		if _, err := d.registry.Create(playerID, a.Name); err != nil {
			log.Error().Err(err).Str("player_id", playerID).Msg("failed to create room")
		}
	case protocol.JoinRoom:
		err := d.registry.Join(a.Code, playerID, a.Name)
		if errors.Is(err, game.ErrRoomNotFound) {
			d.notifier.Send(playerID, game.Error{Message: RoomNotFoundMessage})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("room", a.Code).Str("player_id", playerID).Msg("failed to join room")
		}
	case protocol.StartGame:
		if s, ok := d.registry.Lookup(a.Code); ok {
			s.Start(playerID)
		}
	case protocol.PlayCard:
		if s, ok := d.resolve(a, playerID); ok {
			s.Play(playerID)
		}
	case protocol.ClaimCard:
		if s, ok := d.resolve(a, playerID); ok {
			s.Claim(playerID, game.CardID(a.CardID))
		}
	case protocol.MakePair:
		if s, ok := d.resolve(a, playerID); ok {
			s.MakePair(playerID, game.CardID(a.CardA), game.CardID(a.CardB))
		}
	case protocol.PassTurn:
		if s, ok := d.resolve(a, playerID); ok {
			s.Pass(playerID)
		}
	case protocol.ContinueGame:
		if s, ok := d.resolve(a, playerID); ok {
			s.Continue(playerID)
		}
	}
}

// resolve finds a started room for a gameplay action. Anything else is a
// silent no-op.
func (d *Dispatcher) resolve(a protocol.RoomAction, playerID string) (*game.Session, bool) {
	s, ok := d.registry.Resolve(a.RoomCode())
	if !ok {
		log.Debug().
			Str("room", a.RoomCode()).
			Str("player_id", playerID).
			Str("action", string(a.Type())).
			Msg("no started room for action")
	}
	return s, ok
}

// Disconnect removes a departed player from every room
func (d *Dispatcher) Disconnect(playerID string) {
	d.registry.Disconnect(playerID)
}
