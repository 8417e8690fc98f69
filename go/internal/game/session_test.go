package game

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/egoritak/yesbut/go/internal/catalog"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoom = "ABC123"

func newTestSession(t *testing.T) (*Session, *recordingNotifier, *clockwork.FakeClock) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return newCatalogSession(t, cat)
}

// smallCatalog builds a catalog with pairs "001".."00n"
func smallCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	doc := "pairs:\n"
	for i := 1; i <= n; i++ {
		doc += fmt.Sprintf("  - {id: \"%03d\", yes: \"up %d\", no: \"down %d\"}\n", i, i, i)
	}
	cat, err := catalog.Parse([]byte(doc))
	require.NoError(t, err)
	return cat
}

func newCatalogSession(t *testing.T, cat *catalog.Catalog) (*Session, *recordingNotifier, *clockwork.FakeClock) {
	t.Helper()
	n := newRecordingNotifier()
	clock := clockwork.NewFakeClock()
	s, err := NewSession(testRoom, Deps{
		Catalog:  cat,
		Rules:    DefaultRules(),
		Clock:    clock,
		Notifier: n,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, n, clock
}

// startedSession seats the given players, in order, and starts the party.
// The first player is admin.
func startedSession(t *testing.T, names ...string) (*Session, *recordingNotifier, *clockwork.FakeClock) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return startedCatalogSession(t, cat, names...)
}

func startedCatalogSession(t *testing.T, cat *catalog.Catalog, names ...string) (*Session, *recordingNotifier, *clockwork.FakeClock) {
	t.Helper()
	s, n, clock := newCatalogSession(t, cat)
	for _, name := range names {
		require.NoError(t, s.Join(idOf(name), name))
	}
	s.Start(idOf(names[0]))
	require.True(t, s.Started())
	return s, n, clock
}

func idOf(name string) string {
	return "id-" + name
}

// rig replaces a player's hand with exactly the given cards. The cards are
// pulled from wherever they are and the old hand goes back to the deck.
func rig(t *testing.T, s *Session, playerID string, ids ...CardID) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.player(playerID)
	require.NotNil(t, p)

	for _, id := range ids {
		switch s.arena.location(id) {
		case LocDeck:
			s.deck.cards = removeIDs(s.deck.cards, id)
		case LocHand:
			owner := s.player(s.arena.owner[id])
			require.NotNil(t, owner)
			s.removeFromHand(owner, id)
		case LocNone:
		default:
			t.Fatalf("cannot rig %s from %s", id, s.arena.location(id))
		}
	}

	old := p.Hand
	p.Hand = nil
	if len(old) > 0 {
		s.deck.returnCards(old...)
	}
	for _, id := range ids {
		s.arena.moveToHand(id, p.ID)
		p.Hand = append(p.Hand, id)
	}
}

// checkInvariants verifies every container agrees with the arena and no
// card is in two places.
func checkInvariants(t *testing.T, s *Session) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[CardID]string)
	mark := func(id CardID, where string) {
		if prev, dup := seen[id]; dup {
			t.Errorf("card %s is in %s and %s", id, prev, where)
		}
		seen[id] = where
	}

	for _, id := range s.deck.cards {
		mark(id, "deck")
		assert.Equal(t, LocDeck, s.arena.location(id), "deck card %s", id)
	}
	for _, p := range s.players {
		for _, id := range p.Hand {
			mark(id, "hand of "+p.ID)
			assert.True(t, s.arena.heldBy(id, p.ID), "hand card %s", id)
		}
	}
	for _, e := range s.table {
		if e.Taken {
			continue
		}
		mark(e.CardID, "table")
		assert.Equal(t, LocTable, s.arena.location(e.CardID), "table card %s", e.CardID)
	}
	for _, att := range s.attempts {
		mark(att.a, "pending")
		mark(att.b, "pending")
		assert.Equal(t, LocPending, s.arena.location(att.a))
		assert.Equal(t, LocPending, s.arena.location(att.b))
	}
	for id, loc := range s.arena.loc {
		if _, ok := seen[id]; ok {
			continue
		}
		switch loc {
		case LocNone:
		case LocRetired:
			card, _ := s.arena.card(id)
			assert.True(t, s.deck.isRetired(card.PairID), "card %s retired without its pair", id)
		default:
			t.Errorf("card %s tagged %s but held nowhere", id, loc)
		}
	}

	// Departures can leave ghost cards behind, but only once the table
	// has already closed for plays.
	if !s.revealed && !s.revealPending {
		assert.LessOrEqual(t, len(s.table), len(s.players))
	}
	if len(s.players) > 0 {
		assert.GreaterOrEqual(t, s.turnIndex, 0)
		assert.Less(t, s.turnIndex, len(s.players))
	}
}

func (s *Session) handOf(playerID string) []CardID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.player(playerID); p != nil {
		return append([]CardID(nil), p.Hand...)
	}
	return nil
}

func (s *Session) scoreOf(playerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.player(playerID); p != nil {
		return p.Score
	}
	return -1
}

func TestLobbyRoster(t *testing.T) {
	s, n, _ := newTestSession(t)

	require.NoError(t, s.Join(idOf("Alice"), "Alice"))
	require.NoError(t, s.Join(idOf("Bob"), "Bob"))

	lobby := n.lastLobby()
	assert.Equal(t, []string{"Alice", "Bob"}, lobby.Players)
	assert.Equal(t, idOf("Alice"), lobby.AdminID)
	assert.True(t, n.subscribed(testRoom, idOf("Bob")))

	// Joining twice does not duplicate the seat
	require.NoError(t, s.Join(idOf("Bob"), "Bob"))
	assert.Equal(t, []string{"Alice", "Bob"}, n.lastLobby().Players)
}

func TestStartDealsAndOrdersMessages(t *testing.T) {
	s, n, _ := newTestSession(t)
	require.NoError(t, s.Join(idOf("Alice"), "Alice"))
	require.NoError(t, s.Join(idOf("Bob"), "Bob"))

	s.Start(idOf("Bob"))
	assert.False(t, s.Started(), "only the admin can start")

	n.reset()
	s.Start(idOf("Alice"))
	require.True(t, s.Started())

	st := n.lastState()
	assert.Equal(t, "playing", st.Phase)
	assert.Equal(t, idOf("Alice"), st.ActiveID)
	assert.Empty(t, st.Table)
	assert.False(t, st.Revealed)
	require.Len(t, st.Players, 2)
	for _, p := range st.Players {
		assert.Equal(t, 2, p.HandCount)
	}
	assert.Equal(t, 24-4, st.DeckLeft)

	// Public state first, then each private hand
	log := n.all()
	require.Len(t, log, 3)
	assert.Equal(t, EventState, log[0].Ev.Type())
	assert.Equal(t, idOf("Alice"), log[1].To)
	assert.Equal(t, EventHand, log[1].Ev.Type())
	assert.Equal(t, idOf("Bob"), log[2].To)
	assert.Len(t, n.lastHand(idOf("Alice")).Cards, 2)

	err := s.Join(idOf("Carol"), "Carol")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	checkInvariants(t, s)
}

func TestPlayRevealAfterCountdown(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob")

	s.Play(idOf("Bob"))
	assert.Empty(t, n.lastState().Table, "not Bob's turn")

	s.Play(idOf("Alice"))
	st := n.lastState()
	require.Len(t, st.Table, 1)
	assert.Equal(t, idOf("Bob"), st.ActiveID)
	assert.Equal(t, MaskedContent, st.Table[0].Content)
	assert.NotEmpty(t, st.Table[0].ID)

	s.Play(idOf("Bob"))
	st = n.lastState()
	require.Len(t, st.Table, 2)
	assert.Equal(t, idOf("Bob"), st.ActiveID, "turn stays while the reveal is pending")
	for _, c := range st.Table {
		assert.Equal(t, MaskedContent, c.Content)
	}
	countdowns := n.broadcasts(EventStartCountdown)
	require.Len(t, countdowns, 1)
	assert.Equal(t, StartCountdown{Seconds: 3}, countdowns[0])

	// No plays while the countdown runs
	s.Play(idOf("Bob"))
	assert.Len(t, n.lastState().Table, 2)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 0, n.count(EventReveal))

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return n.count(EventReveal) == 1 }, time.Second, time.Millisecond)

	// The state right before the reveal notice carries real contents
	log := n.all()
	var before State
	for _, r := range log {
		if r.To != "" {
			continue
		}
		if r.Ev.Type() == EventReveal {
			break
		}
		if st, ok := r.Ev.(State); ok {
			before = st
		}
	}
	assert.True(t, before.Revealed)
	for _, c := range before.Table {
		assert.NotEqual(t, MaskedContent, c.Content)
	}

	checkInvariants(t, s)
}

func revealTable(t *testing.T, s *Session, n *recordingNotifier, clock *clockwork.FakeClock, order ...string) {
	t.Helper()
	for _, name := range order {
		s.Play(idOf(name))
	}
	clock.Advance(s.rules.RevealCountdown)
	require.Eventually(t, func() bool { return n.lastState().Revealed }, time.Second, time.Millisecond)
}

func TestClaimRace(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob")
	revealTable(t, s, n, clock, "Alice", "Bob")

	table := n.lastState().Table
	require.Len(t, table, 2)
	first, second := table[0].ID, table[1].ID

	s.Claim(idOf("Alice"), first)
	s.Claim(idOf("Bob"), first)

	claims := n.broadcasts(EventCardClaimed)
	require.Len(t, claims, 1)
	assert.Equal(t, CardClaimed{CardID: first, ByName: "Alice"}, claims[0])
	assert.Contains(t, s.handOf(idOf("Alice")), first)
	assert.NotContains(t, s.handOf(idOf("Bob")), first)

	// Alice already claimed this round
	s.Claim(idOf("Alice"), second)
	assert.Len(t, n.broadcasts(EventCardClaimed), 1)
	checkInvariants(t, s)

	// Bob's claim takes the last card and ends the round
	s.Claim(idOf("Bob"), second)
	assert.Len(t, n.broadcasts(EventCardClaimed), 2)

	st := n.lastState()
	assert.Empty(t, st.Table)
	assert.False(t, st.Revealed)
	assert.Equal(t, idOf("Alice"), st.ActiveID)
	for _, p := range st.Players {
		assert.Equal(t, 3, p.HandCount, "played one, claimed one, dealt one")
	}
	checkInvariants(t, s)
}

func TestClaimBeforeRevealIgnored(t *testing.T) {
	s, n, _ := startedSession(t, "Alice", "Bob")
	s.Play(idOf("Alice"))
	id := n.lastState().Table[0].ID

	s.Claim(idOf("Bob"), id)
	assert.Equal(t, 0, n.count(EventCardClaimed))
}

func TestPairSuccessRetiresPair(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob")
	rig(t, s, idOf("Alice"), "Y003", "N003")
	checkInvariants(t, s)

	s.MakePair(idOf("Alice"), "Y003", "N003")

	reveals := n.broadcasts(EventPairReveal)
	require.Len(t, reveals, 1)
	pr := reveals[0].(PairReveal)
	assert.Equal(t, "Alice", pr.ByName)
	assert.Equal(t, CardID("Y003"), pr.CardA.ID)
	assert.Equal(t, "YES", pr.CardA.Type)
	assert.Equal(t, "NO", pr.CardB.Type)
	checkInvariants(t, s)

	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool { return n.count(EventPairSuccess) == 1 }, time.Second, time.Millisecond)

	success := n.broadcasts(EventPairSuccess)[0].(PairSuccess)
	assert.Equal(t, 1, success.Score)
	assert.Equal(t, idOf("Alice"), success.PlayerID)
	assert.Equal(t, 1, s.scoreOf(idOf("Alice")))

	// Refilled to the floor and keeps the turn
	assert.Len(t, s.handOf(idOf("Alice")), 2)
	assert.Equal(t, idOf("Alice"), n.lastState().ActiveID)
	checkInvariants(t, s)

	// A rebuild from every discarded card still skips the retired pair
	s.mu.Lock()
	for _, id := range s.deck.cards {
		s.arena.move(id, LocNone)
	}
	s.deck.cards = nil
	s.deck.build()
	assert.NotContains(t, s.deck.cards, CardID("Y003"))
	assert.NotContains(t, s.deck.cards, CardID("N003"))
	s.mu.Unlock()
}

func TestPairMismatchReturnsCards(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob")
	rig(t, s, idOf("Alice"), "Y001", "N002", "Y004")
	s.mu.Lock()
	deckBefore := s.deck.len()
	s.mu.Unlock()

	s.MakePair(idOf("Alice"), "Y001", "N002")
	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool { return n.count(EventPairFail) == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, PairFail{ByName: "Alice"}, n.broadcasts(EventPairFail)[0])
	assert.Equal(t, 0, s.scoreOf(idOf("Alice")))
	assert.Equal(t, 0, n.count(EventPairSuccess))

	// Two cards returned, one drawn to refill to the floor
	assert.Len(t, s.handOf(idOf("Alice")), 2)
	assert.Equal(t, deckBefore+1, n.lastState().DeckLeft)
	checkInvariants(t, s)
}

func TestPairValidation(t *testing.T) {
	s, n, _ := startedSession(t, "Alice", "Bob")
	rig(t, s, idOf("Alice"), "Y001", "Y002")
	rig(t, s, idOf("Bob"), "Y005", "N005")

	s.MakePair(idOf("Alice"), "Y001", "Y002") // same side
	s.MakePair(idOf("Alice"), "Y001", "Y001") // same card
	s.MakePair(idOf("Alice"), "Y001", "N009") // not in hand
	s.MakePair(idOf("Bob"), "Y005", "N005")   // not Bob's turn

	assert.Equal(t, 0, n.count(EventPairReveal))
	assert.Len(t, s.handOf(idOf("Alice")), 2)
	checkInvariants(t, s)
}

func TestFinalRoundAndGameOver(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob")

	s.mu.Lock()
	s.player(idOf("Alice")).Score = 2
	s.mu.Unlock()
	rig(t, s, idOf("Alice"), "Y005", "N005")

	s.Pass(idOf("Bob"))
	assert.Equal(t, 0, n.count(EventGameOverFinal), "pass outside the final round is ignored")

	s.MakePair(idOf("Alice"), "Y005", "N005")
	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool { return n.count(EventFinalRound) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, FinalRound{InitiatorName: "Alice"}, n.broadcasts(EventFinalRound)[0])
	assert.True(t, s.State().FinalRound)

	s.Pass(idOf("Bob"))
	s.Pass(idOf("Bob"))
	assert.Equal(t, 0, n.count(EventGameOverFinal))

	s.Pass(idOf("Alice"))
	overs := n.broadcasts(EventGameOverFinal)
	require.Len(t, overs, 1)
	assert.Equal(t, GameOverFinal{WinnerNames: []string{"Alice"}, AdminID: idOf("Alice")}, overs[0])
	assert.Equal(t, "game_over", s.State().Phase)
	assert.Equal(t, 1, n.count(EventFinalRound))
}

func TestFinalRoundAttemptCountsAsGraceAction(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob")

	s.mu.Lock()
	s.player(idOf("Alice")).Score = 2
	s.mu.Unlock()
	rig(t, s, idOf("Alice"), "Y005", "N005", "Y006", "N006")

	s.MakePair(idOf("Alice"), "Y005", "N005")
	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool { return n.count(EventFinalRound) == 1 }, time.Second, time.Millisecond)

	// Scoring again in the final round completes Alice's grace action and
	// never re-announces the final round.
	s.MakePair(idOf("Alice"), "Y006", "N006")
	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool { return n.count(EventPairSuccess) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, n.count(EventFinalRound))
	assert.Equal(t, 0, n.count(EventGameOverFinal))

	s.Pass(idOf("Bob"))
	require.Equal(t, 1, n.count(EventGameOverFinal))
	assert.Equal(t, []string{"Alice"}, n.broadcasts(EventGameOverFinal)[0].(GameOverFinal).WinnerNames)
	assert.Equal(t, 4, s.scoreOf(idOf("Alice")))
}

func TestContinueStartsFreshParty(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob")

	s.mu.Lock()
	s.player(idOf("Alice")).Score = 2
	s.mu.Unlock()
	rig(t, s, idOf("Alice"), "Y005", "N005")
	s.MakePair(idOf("Alice"), "Y005", "N005")
	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool { return n.count(EventFinalRound) == 1 }, time.Second, time.Millisecond)
	s.Pass(idOf("Alice"))
	s.Pass(idOf("Bob"))
	require.Equal(t, "game_over", s.State().Phase)

	s.Continue(idOf("Bob"))
	assert.Equal(t, "game_over", s.State().Phase, "only the admin continues")

	s.Continue(idOf("Alice"))
	st := s.State()
	assert.Equal(t, "playing", st.Phase)
	assert.False(t, st.FinalRound)
	assert.Equal(t, idOf("Alice"), st.ActiveID)
	for _, p := range st.Players {
		assert.Equal(t, 0, p.Score)
		assert.Equal(t, 2, p.HandCount)
	}
	assert.Equal(t, 24-4, st.DeckLeft, "retired pairs are back")
	assert.Equal(t, uint64(2), s.Summary().Party)
	checkInvariants(t, s)
}

func TestPlayWithEmptyHandIgnored(t *testing.T) {
	s, n, _ := startedSession(t, "Alice", "Bob")
	rig(t, s, idOf("Alice"))

	s.Play(idOf("Alice"))
	assert.Empty(t, n.lastState().Table)
	checkInvariants(t, s)
}

func TestLobbyDeparture(t *testing.T) {
	s, n, _ := newTestSession(t)
	require.NoError(t, s.Join(idOf("Alice"), "Alice"))
	require.NoError(t, s.Join(idOf("Bob"), "Bob"))

	left, empty := s.Leave(idOf("Alice"))
	assert.True(t, left)
	assert.False(t, empty)
	assert.Equal(t, LobbyState{Players: []string{"Bob"}, AdminID: idOf("Bob")}, n.lastLobby())
	assert.False(t, n.subscribed(testRoom, idOf("Alice")))

	left, _ = s.Leave(idOf("Alice"))
	assert.False(t, left)

	left, empty = s.Leave(idOf("Bob"))
	assert.True(t, left)
	assert.True(t, empty)
	assert.True(t, s.Closed())
	assert.ErrorIs(t, s.Join(idOf("Carol"), "Carol"), ErrRoomNotFound)
}

func TestDepartureFillsTable(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob", "Carol")
	s.Play(idOf("Alice"))
	s.Play(idOf("Bob"))
	require.Equal(t, idOf("Carol"), n.lastState().ActiveID)

	left, empty := s.Leave(idOf("Carol"))
	require.True(t, left)
	require.False(t, empty)

	st := n.lastState()
	assert.Equal(t, idOf("Alice"), st.ActiveID, "turn clamped to the first seat")
	require.Len(t, st.Players, 2)
	assert.Equal(t, 1, n.count(EventStartCountdown))
	checkInvariants(t, s)

	clock.Advance(s.rules.RevealCountdown)
	require.Eventually(t, func() bool { return n.count(EventReveal) == 1 }, time.Second, time.Millisecond)
}

func TestDepartureOfEarlierSeatKeepsIndex(t *testing.T) {
	s, n, _ := startedSession(t, "Alice", "Bob", "Carol")
	s.Play(idOf("Alice"))
	require.Equal(t, idOf("Bob"), n.lastState().ActiveID)

	// The index stays on seat 1, which is now Carol's
	s.Leave(idOf("Alice"))
	st := n.lastState()
	assert.Equal(t, idOf("Carol"), st.ActiveID)
	assert.Len(t, st.Table, 1, "the departed player's card stays")
	assert.Equal(t, 0, n.count(EventStartCountdown))
	checkInvariants(t, s)
}

func TestDepartureOfEarlierSeatClampsPastEnd(t *testing.T) {
	s, n, _ := startedSession(t, "Alice", "Bob", "Carol")
	s.Play(idOf("Alice"))
	s.Play(idOf("Bob"))
	require.Equal(t, idOf("Carol"), n.lastState().ActiveID)

	// Seat 2 no longer exists, so the turn wraps to the first seat
	s.Leave(idOf("Alice"))
	st := n.lastState()
	assert.Equal(t, idOf("Bob"), st.ActiveID)
	assert.Len(t, st.Table, 2)
	assert.Equal(t, 1, n.count(EventStartCountdown), "two cards for two players closes the table")
	checkInvariants(t, s)
}

func TestShortDealSkipsEmptyHands(t *testing.T) {
	s, n, clock := startedCatalogSession(t, smallCatalog(t, 2), "Alice", "Bob", "Carol")

	st := n.lastState()
	assert.Equal(t, 0, st.DeckLeft)
	require.Len(t, st.Players, 3)
	assert.Equal(t, 2, st.Players[0].HandCount)
	assert.Equal(t, 2, st.Players[1].HandCount)
	assert.Equal(t, 0, st.Players[2].HandCount, "the deck ran dry before Carol")
	checkInvariants(t, s)

	s.Play(idOf("Alice"))
	s.Play(idOf("Bob"))

	// Carol cannot play, so the table is complete with two cards
	st = n.lastState()
	require.Len(t, st.Table, 2)
	assert.Equal(t, 1, n.count(EventStartCountdown))
	checkInvariants(t, s)

	clock.Advance(s.rules.RevealCountdown)
	require.Eventually(t, func() bool { return n.lastState().Revealed }, time.Second, time.Millisecond)

	table := n.lastState().Table
	s.Claim(idOf("Carol"), table[0].ID)
	s.Claim(idOf("Alice"), table[1].ID)

	st = n.lastState()
	assert.Empty(t, st.Table)
	assert.Equal(t, idOf("Carol"), st.ActiveID)
	assert.Len(t, s.handOf(idOf("Carol")), 1)
	checkInvariants(t, s)

	s.Play(idOf("Carol"))
	assert.Len(t, n.lastState().Table, 1)
}

func TestDepartureLeavingOnlyEmptyHandsClosesTable(t *testing.T) {
	s, n, _ := startedCatalogSession(t, smallCatalog(t, 2), "Alice", "Bob", "Carol")
	s.Play(idOf("Alice"))
	require.Equal(t, idOf("Bob"), n.lastState().ActiveID)

	s.Leave(idOf("Bob"))
	st := n.lastState()
	require.Len(t, st.Table, 1)
	assert.Equal(t, 1, n.count(EventStartCountdown), "only Carol is left to play and her hand is empty")
	checkInvariants(t, s)
}

func TestEmptyHandAfterPairPassesTurn(t *testing.T) {
	s, n, clock := startedCatalogSession(t, smallCatalog(t, 2), "Alice", "Bob")
	rig(t, s, idOf("Alice"), "Y001", "N001")
	rig(t, s, idOf("Bob"), "Y002", "N002")
	require.Equal(t, 0, s.Summary().DeckLeft)

	s.MakePair(idOf("Alice"), "Y001", "N001")
	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool { return n.count(EventPairSuccess) == 1 }, time.Second, time.Millisecond)

	// Nothing left to refill from, so the turn moves on
	assert.Empty(t, s.handOf(idOf("Alice")))
	assert.Equal(t, 1, s.scoreOf(idOf("Alice")))
	st := n.lastState()
	assert.Equal(t, idOf("Bob"), st.ActiveID)
	assert.Equal(t, "playing", st.Phase)
	checkInvariants(t, s)
}

func TestExhaustedSupplyEndsParty(t *testing.T) {
	s, n, clock := startedCatalogSession(t, smallCatalog(t, 1), "Alice", "Bob")
	require.ElementsMatch(t, []CardID{"Y001", "N001"}, s.handOf(idOf("Alice")))
	require.Empty(t, s.handOf(idOf("Bob")))

	s.MakePair(idOf("Alice"), "Y001", "N001")
	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool { return n.count(EventGameOverFinal) == 1 }, time.Second, time.Millisecond)

	over := n.broadcasts(EventGameOverFinal)[0].(GameOverFinal)
	assert.Empty(t, over.WinnerNames, "nobody reached the threshold")
	assert.Equal(t, idOf("Alice"), over.AdminID)
	assert.Equal(t, "game_over", n.lastState().Phase)
	assert.Equal(t, 0, n.count(EventFinalRound))
}

func TestGhostCardStaysClaimable(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob", "Carol")
	revealTable(t, s, n, clock, "Alice", "Bob", "Carol")

	ghost := n.lastState().Table[2].ID
	s.Leave(idOf("Carol"))
	require.Len(t, n.lastState().Table, 3)

	s.Claim(idOf("Alice"), ghost)
	assert.Contains(t, s.handOf(idOf("Alice")), ghost)
	checkInvariants(t, s)
}

func TestDepartureCompletesClaims(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob", "Carol")
	revealTable(t, s, n, clock, "Alice", "Bob", "Carol")

	table := n.lastState().Table
	s.Claim(idOf("Alice"), table[0].ID)
	s.Claim(idOf("Bob"), table[1].ID)
	require.Len(t, n.lastState().Table, 3)

	// Alice and Bob have both claimed, so the round ends and the card
	// nobody took is discarded.
	s.Leave(idOf("Carol"))
	assert.Empty(t, n.lastState().Table)
	checkInvariants(t, s)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, LocNone, s.arena.location(table[2].ID))
}

func TestDepartureEndsFinalRound(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob", "Carol")

	s.mu.Lock()
	s.player(idOf("Alice")).Score = 2
	s.mu.Unlock()
	rig(t, s, idOf("Alice"), "Y005", "N005")
	s.MakePair(idOf("Alice"), "Y005", "N005")
	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool { return n.count(EventFinalRound) == 1 }, time.Second, time.Millisecond)

	s.Pass(idOf("Alice"))
	s.Pass(idOf("Bob"))
	assert.Equal(t, 0, n.count(EventGameOverFinal))

	s.Leave(idOf("Carol"))
	overs := n.broadcasts(EventGameOverFinal)
	require.Len(t, overs, 1)
	assert.Equal(t, []string{"Alice"}, overs[0].(GameOverFinal).WinnerNames)
}

func TestAttemptDroppedWhenRequesterLeaves(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob")
	rig(t, s, idOf("Alice"), "Y003", "N003")
	s.MakePair(idOf("Alice"), "Y003", "N003")

	s.Leave(idOf("Alice"))
	clock.Advance(s.rules.ResolveDelay)
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.attempts) == 0
	}, time.Second, time.Millisecond)

	assert.Equal(t, 0, n.count(EventPairSuccess))
	s.mu.Lock()
	assert.Equal(t, LocDeck, s.arena.location("Y003"))
	assert.Equal(t, LocDeck, s.arena.location("N003"))
	s.mu.Unlock()
	checkInvariants(t, s)
}

func TestCloseStopsTimers(t *testing.T) {
	s, n, clock := startedSession(t, "Alice", "Bob")
	s.Play(idOf("Alice"))
	s.Play(idOf("Bob"))
	require.Equal(t, 1, n.count(EventStartCountdown))

	s.Close()
	clock.Advance(time.Minute)
	s.sched.Wait()
	assert.Equal(t, 0, n.count(EventReveal))
}

func TestSummaryHidesHands(t *testing.T) {
	s, _, _ := startedSession(t, "Alice", "Bob")

	sum := s.Summary()
	assert.Equal(t, testRoom, sum.Code)
	assert.Equal(t, "playing", sum.Phase)
	assert.Equal(t, idOf("Alice"), sum.AdminID)
	assert.Len(t, sum.Players, 2)
	assert.Equal(t, uint64(1), sum.Party)
}
