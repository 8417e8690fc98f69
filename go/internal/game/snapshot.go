package game

func cardView(c Card) CardView {
	return CardView{ID: c.ID, Type: c.Side.String(), Content: c.Content}
}

// broadcastState sends the public snapshot to the room, then each player's
// private hand.
func (s *Session) broadcastState() {
	s.notifier.Broadcast(s.code, s.stateLocked())
	for _, p := range s.players {
		s.notifier.Send(p.ID, s.handLocked(p))
	}
}

func (s *Session) broadcastLobby() {
	s.notifier.Broadcast(s.code, LobbyState{Players: s.playerNames(), AdminID: s.adminID})
}

func (s *Session) stateLocked() State {
	st := State{
		Phase:      s.phase.String(),
		Players:    s.playerViews(),
		Table:      make([]TableCardView, 0, len(s.table)),
		DeckLeft:   s.deck.len(),
		Revealed:   s.revealed,
		FinalRound: s.finalRound,
	}
	if s.phase == PhasePlaying {
		if p := s.current(); p != nil {
			st.ActiveID = p.ID
		}
	}
	for _, e := range s.table {
		c, _ := s.arena.card(e.CardID)
		content := MaskedContent
		if s.revealed {
			content = c.Content
		}
		st.Table = append(st.Table, TableCardView{
			ID:      c.ID,
			Type:    c.Side.String(),
			Content: content,
			Taken:   e.Taken,
		})
	}
	return st
}

func (s *Session) handLocked(p *Player) Hand {
	cards := make([]CardView, 0, len(p.Hand))
	for _, id := range p.Hand {
		c, _ := s.arena.card(id)
		cards = append(cards, cardView(c))
	}
	return Hand{Cards: cards}
}

func (s *Session) playerViews() []PlayerView {
	views := make([]PlayerView, 0, len(s.players))
	for _, p := range s.players {
		views = append(views, PlayerView{ID: p.ID, Name: p.Name, Score: p.Score, HandCount: len(p.Hand)})
	}
	return views
}

// State returns the public snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Summary is a read-only view of a room for inspection
type Summary struct {
	Code       string
	Phase      string
	AdminID    string
	Players    []PlayerView
	FinalRound bool
	Revealed   bool
	TableSize  int
	DeckLeft   int
	Retired    int
	Party      uint64
}

// Summary returns public information about the room. Hands are never included.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Summary{
		Code:       s.code,
		Phase:      s.phase.String(),
		AdminID:    s.adminID,
		Players:    s.playerViews(),
		FinalRound: s.finalRound,
		Revealed:   s.revealed,
		TableSize:  len(s.table),
		DeckLeft:   s.deck.len(),
		Retired:    len(s.deck.retired),
		Party:      s.party,
	}
}
