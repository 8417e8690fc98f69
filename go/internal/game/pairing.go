package game

import (
	"fmt"

	"github.com/egoritak/yesbut/go/internal/events"
	"github.com/rs/zerolog/log"
)

// pairAttempt holds two cards between the pair reveal and its resolution
type pairAttempt struct {
	playerID string
	name     string
	a, b     CardID
}

func pairTask(seq uint64) string {
	return fmt.Sprintf("pair:%d", seq)
}

// MakePair takes one card of each side from the active player's hand and
// shows them to the room. The outcome is decided after the resolution delay.
func (s *Session) MakePair(playerID string, a, b CardID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhasePlaying {
		s.ignore(playerID, "make_pair", "not playing")
		return
	}
	p := s.current()
	if p == nil || p.ID != playerID {
		s.ignore(playerID, "make_pair", "not your turn")
		return
	}
	if a == b {
		s.ignore(playerID, "make_pair", "same card twice")
		return
	}
	if !s.arena.heldBy(a, p.ID) || !s.arena.heldBy(b, p.ID) {
		s.ignore(playerID, "make_pair", "cards not in hand")
		return
	}
	ca, _ := s.arena.card(a)
	cb, _ := s.arena.card(b)
	if ca.Side == cb.Side {
		s.ignore(playerID, "make_pair", "cards on the same side")
		return
	}

	s.removeFromHand(p, a)
	s.removeFromHand(p, b)
	s.arena.move(a, LocPending)
	s.arena.move(b, LocPending)

	s.attemptSeq++
	seq := s.attemptSeq
	s.attempts[seq] = &pairAttempt{playerID: p.ID, name: p.Name, a: a, b: b}

	log.Debug().
		Str("room", s.code).
		Str("player_id", p.ID).
		Str("card_a", string(a)).
		Str("card_b", string(b)).
		Msg("pair attempt")

	s.notifier.Broadcast(s.code, PairReveal{ByName: p.Name, CardA: cardView(ca), CardB: cardView(cb)})
	s.broadcastState()

	epoch := s.epoch
	s.sched.Schedule(pairTask(seq), s.rules.ResolveDelay, func() {
		s.resolvePair(epoch, seq)
	})
}

func (s *Session) resolvePair(epoch, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || epoch != s.epoch {
		return
	}
	att, ok := s.attempts[seq]
	if !ok {
		return
	}
	delete(s.attempts, seq)

	p := s.player(att.playerID)
	if p == nil {
		s.deck.returnCards(att.a, att.b)
		log.Debug().Str("room", s.code).Str("player_id", att.playerID).Msg("pair attempt dropped, player left")
		s.settle()
		return
	}

	ca, _ := s.arena.card(att.a)
	cb, _ := s.arena.card(att.b)
	enteredFinal := false

	if ca.PairID == cb.PairID {
		p.Score++
		s.deck.retire(ca.PairID)

		log.Info().
			Str("room", s.code).
			Str("player_id", p.ID).
			Str("pair_id", ca.PairID).
			Int("score", p.Score).
			Msg("pair scored")

		s.notifier.Broadcast(s.code, PairSuccess{
			ByName:   p.Name,
			PlayerID: p.ID,
			Score:    p.Score,
			CardA:    cardView(ca),
			CardB:    cardView(cb),
		})

		if p.Score >= s.rules.WinThreshold && !s.finalRound {
			s.enterFinalRound(p)
			enteredFinal = true
		}
	} else {
		s.deck.returnCards(att.a, att.b)
		s.notifier.Broadcast(s.code, PairFail{ByName: p.Name})
	}

	// Any resolved attempt in the final round is that player's grace action
	if s.finalRound && !enteredFinal {
		s.passed[p.ID] = true
	}

	if len(p.Hand) < s.rules.HandFloor {
		s.dealTo(p, s.rules.HandFloor-len(p.Hand))
	}
	if len(p.Hand) == 0 {
		if cur := s.current(); cur != nil && cur.ID == p.ID {
			s.advanceTurn()
		}
	}

	// The requester may have been the last player who could still play
	if s.tableFull() && !(s.finalRound && s.allPassed()) {
		s.broadcastState()
		s.startCountdown()
		return
	}
	s.settle()
}

// Pass completes the player's grace action during the final round
func (s *Session) Pass(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhasePlaying || !s.finalRound {
		s.ignore(playerID, "pass_turn", "not in final round")
		return
	}
	if s.indexOf(playerID) < 0 {
		s.ignore(playerID, "pass_turn", "not seated")
		return
	}
	if s.passed[playerID] {
		s.ignore(playerID, "pass_turn", "already passed")
		return
	}
	s.passed[playerID] = true

	log.Debug().Str("room", s.code).Str("player_id", playerID).Int("passed", len(s.passed)).Msg("grace action passed")

	if s.allPassed() {
		s.gameOver()
	}
}

// settle broadcasts the state after a step and ends the party when it
// cannot go on: every grace action is done, or no card is left to play.
func (s *Session) settle() {
	exhausted := s.supplyExhausted()
	s.broadcastState()

	switch {
	case s.phase != PhasePlaying:
	case s.finalRound && s.allPassed():
		s.gameOver()
	case exhausted:
		log.Info().Str("room", s.code).Int("deck", s.deck.len()).Msg("card supply exhausted")
		s.gameOver()
	}
}

// supplyExhausted reports whether no card is left anywhere to play. Before
// giving up it deals one card to each player, which picks up cards that
// left the game with a departed player.
func (s *Session) supplyExhausted() bool {
	if s.phase != PhasePlaying || len(s.players) == 0 {
		return false
	}
	if len(s.table) > 0 || len(s.attempts) > 0 || s.anyHand() {
		return false
	}
	for _, p := range s.players {
		s.dealTo(p, 1)
	}
	s.settleTurn()
	return !s.anyHand()
}

func (s *Session) enterFinalRound(initiator *Player) {
	s.finalRound = true
	s.passed = make(map[string]bool)

	log.Info().Str("room", s.code).Str("player_id", initiator.ID).Msg("final round started")

	s.notifier.Broadcast(s.code, FinalRound{InitiatorName: initiator.Name})
	s.publish(events.TypeFinalRoundStarted, events.FinalRoundStartedPayload{
		RoomCode:      s.code,
		InitiatorID:   initiator.ID,
		InitiatorName: initiator.Name,
		StartedAt:     s.clock.Now(),
	})
}

func (s *Session) allPassed() bool {
	if len(s.players) == 0 {
		return false
	}
	for _, p := range s.players {
		if !s.passed[p.ID] {
			return false
		}
	}
	return true
}

func (s *Session) gameOver() {
	s.phase = PhaseGameOver
	s.epoch++
	s.sched.CancelAll()
	s.revealPending = false

	// Cards held by abandoned attempts go back to the deck
	for seq, att := range s.attempts {
		s.deck.returnCards(att.a, att.b)
		delete(s.attempts, seq)
	}

	winners := s.winners()
	scores := make(map[string]int, len(s.players))
	for _, p := range s.players {
		scores[p.Name] = p.Score
	}

	log.Info().
		Str("room", s.code).
		Strs("winners", winners).
		Msg("game over")

	s.broadcastState()
	s.notifier.Broadcast(s.code, GameOverFinal{WinnerNames: winners, AdminID: s.adminID})
	s.publish(events.TypeGameOver, events.GameOverPayload{
		RoomCode:    s.code,
		WinnerNames: winners,
		Scores:      scores,
		EndedAt:     s.clock.Now(),
		PartyNumber: s.party,
	})
}

// winners are the names of every player at or above the threshold
func (s *Session) winners() []string {
	names := make([]string, 0, 1)
	for _, p := range s.players {
		if p.Score >= s.rules.WinThreshold {
			names = append(names, p.Name)
		}
	}
	return names
}
