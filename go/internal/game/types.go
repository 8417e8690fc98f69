package game

import (
	"time"
)

// Side is the half of a pair a card belongs to
type Side uint8

const (
	SideAffirm Side = iota
	SideContrast
)

// Tag is the single-letter prefix used in card ids
func (s Side) Tag() string {
	if s == SideAffirm {
		return "Y"
	}
	return "N"
}

// String returns the card type shown to clients
func (s Side) String() string {
	if s == SideAffirm {
		return "YES"
	}
	return "NO"
}

// CardID identifies a card as {side tag}{pair id}, e.g. "Y003"
type CardID string

// Card is an immutable card definition
type Card struct {
	ID      CardID
	Side    Side
	PairID  string
	Content string
}

func cardID(side Side, pairID string) CardID {
	return CardID(side.Tag() + pairID)
}

// Phase is the coarse lifecycle phase of a session
type Phase uint8

const (
	PhaseLobby Phase = iota
	PhasePlaying
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhasePlaying:
		return "playing"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Player is a seated participant. Hand order is FIFO: plays take the head,
// deals and claims append to the tail.
type Player struct {
	ID      string
	Name    string
	Hand    []CardID
	Score   int
	Claimed bool
}

// TableEntry is a card played face-down this round
type TableEntry struct {
	CardID  CardID
	OwnerID string
	Taken   bool
}

// DeckPolicy selects how many catalog pairs a party draws from
type DeckPolicy string

const (
	// DeckPolicyFull uses every catalog pair
	DeckPolicyFull DeckPolicy = "full"
	// DeckPolicySized uses a random subset sized to the player count plus a margin
	DeckPolicySized DeckPolicy = "sized"
)

// Rules holds the tunable constants of a party
type Rules struct {
	InitialHand     int
	HandFloor       int
	WinThreshold    int
	RevealCountdown time.Duration
	ResolveDelay    time.Duration
	DeckPolicy      DeckPolicy
	DeckMargin      int
}

// DefaultRules returns the standard Yes-But rules
func DefaultRules() Rules {
	return Rules{
		InitialHand:     2,
		HandFloor:       2,
		WinThreshold:    3,
		RevealCountdown: 3 * time.Second,
		ResolveDelay:    1500 * time.Millisecond,
		DeckPolicy:      DeckPolicyFull,
		DeckMargin:      3,
	}
}
