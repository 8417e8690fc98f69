package room

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/egoritak/yesbut/go/internal/events"
	"github.com/egoritak/yesbut/go/internal/game"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Registry maps room codes to sessions. It is safe for concurrent use.
// The registry lock is never held while calling into a session.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*game.Session

	deps       game.Deps
	codeSource io.Reader
}

// NewRegistry creates a registry whose sessions share the given
// dependencies. Each session gets its own random source.
func NewRegistry(deps game.Deps) *Registry {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	deps.Rand = nil
	return &Registry{
		rooms:      make(map[string]*game.Session),
		deps:       deps,
		codeSource: rand.Reader,
	}
}

// Create opens a new lobby with the requester as its only player and admin
func (r *Registry) Create(playerID, name string) (string, error) {
	name = NormalizeName(name)

	s, err := r.allocate()
	if err != nil {
		return "", err
	}
	code := s.Code()

	log.Info().Str("room", code).Str("player_id", playerID).Msg("room created")

	if r.deps.Notifier != nil {
		r.deps.Notifier.Send(playerID, game.RoomCreated{Code: code})
	}
	if err := s.Join(playerID, name); err != nil {
		return "", fmt.Errorf("seat room creator: %w", err)
	}

	r.publish(events.TypeRoomCreated, code, events.RoomCreatedPayload{
		RoomCode:  code,
		AdminID:   playerID,
		CreatedAt: r.deps.Clock.Now(),
	})
	return code, nil
}

func (r *Registry) allocate() (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode(r.codeSource)
		if err != nil {
			return nil, err
		}
		if _, taken := r.rooms[code]; taken {
			log.Debug().Str("room", code).Msg("room code collision, re-rolling")
			continue
		}

		s, err := game.NewSession(code, r.deps)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		r.rooms[code] = s
		return s, nil
	}
	return nil, ErrNoFreeCode
}

// Join seats a player in a lobby. Unknown and already started rooms
// return game.ErrRoomNotFound.
func (r *Registry) Join(code, playerID, name string) error {
	s, ok := r.Lookup(code)
	if !ok {
		return game.ErrRoomNotFound
	}
	return s.Join(playerID, NormalizeName(name))
}

// Lookup returns the session for code in any phase
func (r *Registry) Lookup(code string) (*game.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rooms[NormalizeCode(code)]
	return s, ok
}

// Resolve returns the session for gameplay actions. Rooms that have not
// started resolve to nothing.
func (r *Registry) Resolve(code string) (*game.Session, bool) {
	s, ok := r.Lookup(code)
	if !ok || !s.Started() {
		return nil, false
	}
	return s, true
}

// Disconnect removes the player from every room they sit in and destroys
// lobbies left empty.
func (r *Registry) Disconnect(playerID string) {
	for _, s := range r.sessions() {
		left, empty := s.Leave(playerID)
		if !left {
			continue
		}
		if empty {
			r.destroy(s, "empty")
		}
	}
}

func (r *Registry) destroy(s *game.Session, reason string) {
	code := s.Code()

	r.mu.Lock()
	if r.rooms[code] == s {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	s.Close()
	log.Info().Str("room", code).Str("reason", reason).Msg("room closed")

	r.publish(events.TypeRoomClosed, code, events.RoomClosedPayload{
		RoomCode: code,
		ClosedAt: r.deps.Clock.Now(),
		Reason:   reason,
	})
}

func (r *Registry) sessions() []*game.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*game.Session, 0, len(r.rooms))
	for _, s := range r.rooms {
		out = append(out, s)
	}
	return out
}

// Rooms returns a summary of every room ordered by code
func (r *Registry) Rooms() []game.Summary {
	sessions := r.sessions()
	out := make([]game.Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Room returns the summary of a single room
func (r *Registry) Room(code string) (game.Summary, bool) {
	s, ok := r.Lookup(code)
	if !ok {
		return game.Summary{}, false
	}
	return s.Summary(), true
}

// Len returns the number of open rooms
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Close tears down every room
func (r *Registry) Close() {
	for _, s := range r.sessions() {
		r.destroy(s, "shutdown")
	}
}

func (r *Registry) publish(eventType events.EventType, code string, payload any) {
	if r.deps.Publisher == nil {
		return
	}
	ev, err := events.New(eventType, code, r.deps.Clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("failed to build room event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.deps.Publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("room", code).Str("event_type", string(eventType)).Msg("failed to publish room event")
	}
}
