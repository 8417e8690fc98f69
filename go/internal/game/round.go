package game

import (
	"math"

	"github.com/rs/zerolog/log"
)

const revealTask = "reveal"

// Play puts the head of the active player's hand face-down on the table.
// Filling the table starts the reveal countdown; otherwise the turn passes.
func (s *Session) Play(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhasePlaying {
		s.ignore(playerID, "play_card", "not playing")
		return
	}
	if s.revealed || s.revealPending || s.tableFull() {
		s.ignore(playerID, "play_card", "table closed")
		return
	}
	p := s.current()
	if p == nil || p.ID != playerID {
		s.ignore(playerID, "play_card", "not your turn")
		return
	}
	if len(p.Hand) == 0 {
		s.ignore(playerID, "play_card", "empty hand")
		return
	}

	id := p.Hand[0]
	p.Hand = p.Hand[1:]
	s.arena.move(id, LocTable)
	s.table = append(s.table, TableEntry{CardID: id, OwnerID: p.ID})

	log.Debug().
		Str("room", s.code).
		Str("player_id", p.ID).
		Str("card_id", string(id)).
		Int("table", len(s.table)).
		Msg("card played")

	full := s.tableFull()
	if !full {
		s.advanceTurn()
	}
	s.broadcastState()
	if full {
		s.startCountdown()
	}
}

func (s *Session) startCountdown() {
	s.revealPending = true
	epoch := s.epoch
	s.sched.Schedule(revealTask, s.rules.RevealCountdown, func() {
		s.reveal(epoch)
	})

	seconds := int(math.Ceil(s.rules.RevealCountdown.Seconds()))
	s.notifier.Broadcast(s.code, StartCountdown{Seconds: seconds})
}

func (s *Session) reveal(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || epoch != s.epoch || !s.revealPending {
		return
	}
	s.revealPending = false
	s.revealed = true

	log.Debug().Str("room", s.code).Int("table", len(s.table)).Msg("table revealed")

	s.broadcastState()
	s.notifier.Broadcast(s.code, Reveal{})

	// Everyone who could claim may have left during the countdown
	if s.claimsDone() {
		s.completeClaims()
		s.settle()
	}
}

// Claim takes a revealed table card into the player's hand. Each player
// gets at most one card per round and each card goes to the first claimer.
func (s *Session) Claim(playerID string, id CardID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhasePlaying || !s.revealed {
		s.ignore(playerID, "claim_card", "nothing revealed")
		return
	}
	p := s.player(playerID)
	if p == nil {
		s.ignore(playerID, "claim_card", "not seated")
		return
	}
	if p.Claimed {
		s.ignore(playerID, "claim_card", "already claimed")
		return
	}

	entry := s.tableEntry(id)
	if entry == nil || entry.Taken {
		s.ignore(playerID, "claim_card", "card unavailable")
		return
	}

	entry.Taken = true
	p.Claimed = true
	s.arena.moveToHand(id, p.ID)
	p.Hand = append(p.Hand, id)

	log.Debug().
		Str("room", s.code).
		Str("player_id", p.ID).
		Str("card_id", string(id)).
		Msg("card claimed")

	s.notifier.Broadcast(s.code, CardClaimed{CardID: id, ByName: p.Name})
	if s.claimsDone() {
		s.completeClaims()
	}
	s.settle()
}

// tableFull reports whether the table has stopped taking plays for this
// round: one card per seated player, or every player who has not played
// yet has an empty hand and could never fill it.
func (s *Session) tableFull() bool {
	if s.revealed || s.revealPending {
		return false
	}
	if len(s.table) == 0 {
		return false
	}
	if len(s.table) >= len(s.players) {
		return true
	}
	played := make(map[string]bool, len(s.table))
	for _, e := range s.table {
		played[e.OwnerID] = true
	}
	for _, p := range s.players {
		if !played[p.ID] && len(p.Hand) > 0 {
			return false
		}
	}
	return true
}

func (s *Session) tableEntry(id CardID) *TableEntry {
	for i := range s.table {
		if s.table[i].CardID == id {
			return &s.table[i]
		}
	}
	return nil
}

// claimsDone reports whether the claim phase is over: every card is taken
// or every seated player has claimed.
func (s *Session) claimsDone() bool {
	allTaken := true
	for _, e := range s.table {
		if !e.Taken {
			allTaken = false
			break
		}
	}
	if allTaken {
		return true
	}
	for _, p := range s.players {
		if !p.Claimed {
			return false
		}
	}
	return true
}

// completeClaims discards unclaimed cards, deals one card to everyone and
// opens the next round.
func (s *Session) completeClaims() {
	discarded := 0
	for _, e := range s.table {
		if !e.Taken {
			s.arena.move(e.CardID, LocNone)
			discarded++
		}
	}
	s.table = nil
	s.revealed = false

	for _, p := range s.players {
		p.Claimed = false
		s.dealTo(p, 1)
	}
	s.advanceTurn()

	log.Debug().
		Str("room", s.code).
		Int("discarded", discarded).
		Int("deck", s.deck.len()).
		Msg("round complete")
}
