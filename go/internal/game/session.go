package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/egoritak/yesbut/go/internal/catalog"
	"github.com/egoritak/yesbut/go/internal/events"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators of a Session
type Deps struct {
	Catalog   *catalog.Catalog
	Rules     Rules
	Clock     clockwork.Clock  // defaults to the real clock
	Notifier  Notifier         // defaults to a no-op notifier
	Publisher events.Publisher // optional lifecycle event sink
	Rand      *rand.Rand       // defaults to a randomly seeded PCG
}

// Session is the authoritative state of one room. Every exported method and
// every timer continuation runs under mu, so state changes are strictly
// sequential.
type Session struct {
	mu sync.Mutex

	code      string
	rules     Rules
	clock     clockwork.Clock
	notifier  Notifier
	publisher events.Publisher
	sched     *Scheduler

	arena *arena
	deck  *deckManager

	adminID    string
	phase      Phase
	finalRound bool
	passed     map[string]bool
	players    []*Player
	turnIndex  int

	table         []TableEntry
	revealed      bool
	revealPending bool

	attempts   map[uint64]*pairAttempt
	attemptSeq uint64

	// epoch changes at every party start and game over; continuations
	// scheduled under an older epoch are dropped.
	epoch  uint64
	party  uint64
	closed bool
}

// NewSession creates an empty lobby for the given room code
func NewSession(code string, deps Deps) (*Session, error) {
	if deps.Catalog == nil {
		return nil, ErrNilCatalog
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	a := newArena(deps.Catalog)
	return &Session{
		code:      code,
		rules:     deps.Rules,
		clock:     deps.Clock,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		sched:     NewScheduler(deps.Clock),
		arena:     a,
		deck:      newDeckManager(deps.Catalog, a, deps.Rand),
		phase:     PhaseLobby,
		passed:    make(map[string]bool),
		attempts:  make(map[uint64]*pairAttempt),
	}, nil
}

func (s *Session) Code() string {
	return s.code
}

// Started reports whether the first party has begun
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase != PhaseLobby
}

// Join seats a player in the lobby. The first player becomes admin.
func (s *Session) Join(playerID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseLobby {
		return ErrRoomNotFound
	}
	if s.indexOf(playerID) >= 0 {
		s.broadcastLobby()
		return nil
	}

	s.notifier.Subscribe(playerID, s.code)
	s.players = append(s.players, &Player{ID: playerID, Name: name})
	if s.adminID == "" {
		s.adminID = playerID
	}

	log.Info().
		Str("room", s.code).
		Str("player_id", playerID).
		Str("name", name).
		Int("players", len(s.players)).
		Msg("player joined")

	s.broadcastLobby()
	return nil
}

// Start deals the first party. Only the admin can start, and only from the lobby.
func (s *Session) Start(requester string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseLobby {
		s.ignore(requester, "start_game", "not in lobby")
		return
	}
	if requester != s.adminID {
		s.ignore(requester, "start_game", "not admin")
		return
	}
	s.startParty(false)
}

// Continue starts a fresh party after game over
func (s *Session) Continue(requester string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseGameOver {
		s.ignore(requester, "continue_game", "game not over")
		return
	}
	if requester != s.adminID {
		s.ignore(requester, "continue_game", "not admin")
		return
	}
	s.startParty(true)
}

func (s *Session) startParty(continued bool) {
	s.party++
	s.epoch++
	s.sched.CancelAll()

	s.finalRound = false
	s.passed = make(map[string]bool)
	s.table = nil
	s.revealed = false
	s.revealPending = false
	s.attempts = make(map[uint64]*pairAttempt)
	s.turnIndex = 0
	for _, p := range s.players {
		p.Hand = nil
		p.Score = 0
		p.Claimed = false
	}

	s.deck.newParty(s.rules.DeckPolicy, s.rules.DeckMargin, len(s.players))
	for _, p := range s.players {
		s.dealTo(p, s.rules.InitialHand)
	}
	s.settleTurn()
	s.phase = PhasePlaying

	log.Info().
		Str("room", s.code).
		Uint64("party", s.party).
		Int("players", len(s.players)).
		Int("deck", s.deck.len()).
		Bool("continued", continued).
		Msg("party started")

	s.broadcastState()
	s.publish(events.TypeGameStarted, events.GameStartedPayload{
		RoomCode:    s.code,
		Players:     s.playerNames(),
		DeckSize:    s.deck.len(),
		StartedAt:   s.clock.Now(),
		Continued:   continued,
		PartyNumber: s.party,
	})
}

// Leave removes a player. It reports whether the player was seated and
// whether the room is now an empty lobby that must be destroyed. A session
// reported as empty is already closed to further joins.
func (s *Session) Leave(playerID string) (left, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(playerID)
	if idx < 0 {
		return false, false
	}

	p := s.players[idx]
	s.notifier.Unsubscribe(playerID, s.code)
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	delete(s.passed, playerID)

	// Cards leave with the player; they become eligible for a rebuild
	for _, id := range p.Hand {
		s.arena.move(id, LocNone)
	}
	p.Hand = nil

	if s.adminID == playerID {
		s.adminID = ""
		if len(s.players) > 0 {
			s.adminID = s.players[0].ID
		}
	}

	log.Info().
		Str("room", s.code).
		Str("player_id", playerID).
		Str("phase", s.phase.String()).
		Int("players", len(s.players)).
		Msg("player left")

	switch s.phase {
	case PhaseLobby:
		if len(s.players) == 0 {
			s.closed = true
			s.sched.Close()
			return true, true
		}
		s.broadcastLobby()
	case PhasePlaying:
		if s.turnIndex >= len(s.players) {
			s.turnIndex = 0
		}
		s.afterDeparture()
	case PhaseGameOver:
		s.broadcastState()
	}
	return true, false
}

// afterDeparture re-evaluates round progress once the roster shrank
func (s *Session) afterDeparture() {
	if len(s.players) == 0 {
		s.broadcastState()
		return
	}

	s.settleTurn()
	if s.tableFull() && !(s.finalRound && s.allPassed()) {
		s.broadcastState()
		s.startCountdown()
		return
	}
	if s.revealed && s.claimsDone() {
		s.completeClaims()
	}
	s.settle()
}

// Close tears the session down. Pending timers are cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.sched.Close()
	for _, p := range s.players {
		s.notifier.Unsubscribe(p.ID, s.code)
	}
}

// Closed reports whether the session was torn down
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) indexOf(playerID string) int {
	for i, p := range s.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (s *Session) player(playerID string) *Player {
	if i := s.indexOf(playerID); i >= 0 {
		return s.players[i]
	}
	return nil
}

func (s *Session) current() *Player {
	if len(s.players) == 0 {
		return nil
	}
	return s.players[s.turnIndex]
}

// advanceTurn moves to the next seat whose player still holds cards. When
// nobody does, the next seat takes the turn.
func (s *Session) advanceTurn() {
	n := len(s.players)
	if n == 0 {
		s.turnIndex = 0
		return
	}
	for step := 1; step <= n; step++ {
		i := (s.turnIndex + step) % n
		if len(s.players[i].Hand) > 0 {
			s.turnIndex = i
			return
		}
	}
	s.turnIndex = (s.turnIndex + 1) % n
}

// settleTurn moves the turn off an active player with nothing to play,
// unless that player is still waiting on a pair resolution. A closed table
// keeps its turn; completing the claims advances it.
func (s *Session) settleTurn() {
	if s.revealed || s.revealPending {
		return
	}
	p := s.current()
	if p == nil || len(p.Hand) > 0 || s.awaitingPair(p.ID) {
		return
	}
	s.advanceTurn()
}

func (s *Session) awaitingPair(playerID string) bool {
	for _, att := range s.attempts {
		if att.playerID == playerID {
			return true
		}
	}
	return false
}

func (s *Session) anyHand() bool {
	for _, p := range s.players {
		if len(p.Hand) > 0 {
			return true
		}
	}
	return false
}

// dealTo draws up to n cards into the player's hand. Short deals are fine.
func (s *Session) dealTo(p *Player, n int) int {
	dealt := 0
	for ; dealt < n; dealt++ {
		id, ok := s.deck.draw()
		if !ok {
			log.Debug().
				Str("room", s.code).
				Str("player_id", p.ID).
				Int("wanted", n).
				Int("dealt", dealt).
				Msg("deck exhausted, short deal")
			break
		}
		s.arena.moveToHand(id, p.ID)
		p.Hand = append(p.Hand, id)
	}
	return dealt
}

func (s *Session) removeFromHand(p *Player, id CardID) bool {
	for i, h := range p.Hand {
		if h == id {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) playerNames() []string {
	names := make([]string, 0, len(s.players))
	for _, p := range s.players {
		names = append(names, p.Name)
	}
	return names
}

func (s *Session) ignore(playerID, action, reason string) {
	log.Debug().
		Str("room", s.code).
		Str("player_id", playerID).
		Str("action", action).
		Str("reason", reason).
		Msg("action ignored")
}

// publish hands a lifecycle event to the publisher. Failures are logged only.
func (s *Session) publish(eventType events.EventType, payload any) {
	if s.publisher == nil {
		return
	}
	ev, err := events.New(eventType, s.code, s.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("room", s.code).Msg("failed to build room event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("room", s.code).Str("event_type", string(eventType)).Msg("failed to publish room event")
	}
}
