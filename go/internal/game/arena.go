package game

import (
	"github.com/egoritak/yesbut/go/internal/catalog"
)

// Location is the single authoritative place a card occupies
type Location uint8

const (
	// LocNone means out of circulation: never dealt this cycle or discarded
	LocNone Location = iota
	LocDeck
	LocHand
	LocTable
	// LocPending holds the two cards of an unresolved pair attempt
	LocPending
	LocRetired
)

func (l Location) String() string {
	switch l {
	case LocNone:
		return "none"
	case LocDeck:
		return "deck"
	case LocHand:
		return "hand"
	case LocTable:
		return "table"
	case LocPending:
		return "pending"
	case LocRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// arena owns every card definition of a session and its location tag.
// Hands, the deck and the table only hold ids.
type arena struct {
	cards map[CardID]Card
	loc   map[CardID]Location
	owner map[CardID]string
}

func newArena(cat *catalog.Catalog) *arena {
	a := &arena{
		cards: make(map[CardID]Card, cat.Len()*2),
		loc:   make(map[CardID]Location, cat.Len()*2),
		owner: make(map[CardID]string),
	}
	for _, p := range cat.Pairs() {
		yes := Card{ID: cardID(SideAffirm, p.ID), Side: SideAffirm, PairID: p.ID, Content: p.Affirm}
		no := Card{ID: cardID(SideContrast, p.ID), Side: SideContrast, PairID: p.ID, Content: p.Contrast}
		a.cards[yes.ID] = yes
		a.cards[no.ID] = no
		a.loc[yes.ID] = LocNone
		a.loc[no.ID] = LocNone
	}
	return a
}

func (a *arena) card(id CardID) (Card, bool) {
	c, ok := a.cards[id]
	return c, ok
}

func (a *arena) location(id CardID) Location {
	return a.loc[id]
}

// heldBy reports whether the card sits in the given player's hand
func (a *arena) heldBy(id CardID, playerID string) bool {
	return a.loc[id] == LocHand && a.owner[id] == playerID
}

func (a *arena) move(id CardID, to Location) {
	a.loc[id] = to
	delete(a.owner, id)
}

func (a *arena) moveToHand(id CardID, playerID string) {
	a.loc[id] = LocHand
	a.owner[id] = playerID
}

// reset puts every card back out of circulation
func (a *arena) reset() {
	for id := range a.loc {
		a.loc[id] = LocNone
	}
	a.owner = make(map[CardID]string)
}
