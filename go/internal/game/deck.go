package game

import (
	"math/rand/v2"

	"github.com/egoritak/yesbut/go/internal/catalog"
	"github.com/rs/zerolog/log"
)

// deckManager builds and replenishes the draw pile of one session.
// It relies on the arena for exclusion: only cards tagged LocNone are
// eligible for a rebuild, so a card in a hand, on the table, pending
// resolution or retired can never be recreated in the deck.
type deckManager struct {
	cat   *catalog.Catalog
	arena *arena
	rng   *rand.Rand

	pool    []string        // pair ids this party draws from
	retired map[string]bool // pair ids permanently out of play
	cards   []CardID        // draw pile, top is the last element
}

func newDeckManager(cat *catalog.Catalog, a *arena, rng *rand.Rand) *deckManager {
	return &deckManager{
		cat:     cat,
		arena:   a,
		rng:     rng,
		retired: make(map[string]bool),
	}
}

// newParty forgets all previous state, picks the pair pool for the given
// number of players and builds a fresh shuffled deck.
func (d *deckManager) newParty(policy DeckPolicy, margin, players int) {
	d.arena.reset()
	d.retired = make(map[string]bool)
	d.cards = nil
	d.pool = d.choosePool(policy, margin, players)
	d.build()
}

func (d *deckManager) choosePool(policy DeckPolicy, margin, players int) []string {
	pairs := d.cat.Pairs()
	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.ID)
	}
	if policy != DeckPolicySized {
		return ids
	}

	// At least one unique pair per player plus one, so every player can
	// be dealt a full round without the deck running dry immediately.
	size := players + margin
	if size < players+1 {
		size = players + 1
	}
	if size > len(ids) {
		size = len(ids)
	}
	d.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids[:size]
}

// build moves every eligible card of the pool into the deck and shuffles it.
// It returns how many cards were added.
func (d *deckManager) build() int {
	added := 0
	for _, pairID := range d.pool {
		if d.retired[pairID] {
			continue
		}
		for _, side := range []Side{SideAffirm, SideContrast} {
			id := cardID(side, pairID)
			if d.arena.location(id) != LocNone {
				continue
			}
			d.arena.move(id, LocDeck)
			d.cards = append(d.cards, id)
			added++
		}
	}
	d.shuffle()
	return added
}

func (d *deckManager) shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) { d.cards[i], d.cards[j] = d.cards[j], d.cards[i] })
}

// draw pops the top card, replenishing from the pool first if the deck is
// empty. ok is false when nothing is left to deal.
func (d *deckManager) draw() (CardID, bool) {
	if len(d.cards) == 0 {
		added := d.build()
		log.Debug().Int("added", added).Msg("deck replenished")
		if added == 0 {
			return "", false
		}
	}
	top := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return top, true
}

// returnCards puts cards straight back into the existing deck, bypassing
// pool exclusion, and reshuffles.
func (d *deckManager) returnCards(ids ...CardID) {
	for _, id := range ids {
		d.arena.move(id, LocDeck)
		d.cards = append(d.cards, id)
	}
	d.shuffle()
}

// retire removes a pair from circulation for the rest of the party
func (d *deckManager) retire(pairID string) {
	d.retired[pairID] = true
	d.arena.move(cardID(SideAffirm, pairID), LocRetired)
	d.arena.move(cardID(SideContrast, pairID), LocRetired)
}

func (d *deckManager) len() int {
	return len(d.cards)
}
