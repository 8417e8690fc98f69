package events

import (
	"time"
)

// Event payload types published for room lifecycle transitions

// RoomCreatedPayload is the payload for a RoomCreated event
type RoomCreatedPayload struct {
	RoomCode  string    `json:"room_code"`
	AdminID   string    `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GameStartedPayload is the payload for a GameStarted event
type GameStartedPayload struct {
	RoomCode    string    `json:"room_code"`
	Players     []string  `json:"players"`
	DeckSize    int       `json:"deck_size"`
	StartedAt   time.Time `json:"started_at"`
	Continued   bool      `json:"continued"`
	PartyNumber uint64    `json:"party_number"`
}

// FinalRoundStartedPayload is the payload for a FinalRoundStarted event
type FinalRoundStartedPayload struct {
	RoomCode      string    `json:"room_code"`
	InitiatorID   string    `json:"initiator_id"`
	InitiatorName string    `json:"initiator_name"`
	StartedAt     time.Time `json:"started_at"`
}

// GameOverPayload is the payload for a GameOver event
type GameOverPayload struct {
	RoomCode    string         `json:"room_code"`
	WinnerNames []string       `json:"winner_names"`
	Scores      map[string]int `json:"scores"`
	EndedAt     time.Time      `json:"ended_at"`
	PartyNumber uint64         `json:"party_number"`
}

// RoomClosedPayload is the payload for a RoomClosed event
type RoomClosedPayload struct {
	RoomCode string    `json:"room_code"`
	ClosedAt time.Time `json:"closed_at"`
	Reason   string    `json:"reason"`
}
