package game

// EventType names an outbound notification
type EventType string

const (
	EventConnected      EventType = "connected"
	EventRoomCreated    EventType = "room_created"
	EventLobbyState     EventType = "lobby_state"
	EventState          EventType = "state"
	EventHand           EventType = "hand"
	EventStartCountdown EventType = "start_countdown"
	EventReveal         EventType = "reveal"
	EventCardClaimed    EventType = "card_claimed"
	EventPairReveal     EventType = "pair_reveal"
	EventPairSuccess    EventType = "pair_success"
	EventPairFail       EventType = "pair_fail"
	EventFinalRound     EventType = "final_round"
	EventGameOverFinal  EventType = "game_over_final"
	EventError          EventType = "error"
)

// MaskedContent replaces table card content until the reveal
const MaskedContent = "???"

// Event is an outbound notification. The set of implementations is closed
// to this package.
type Event interface {
	Type() EventType
	event()
}

// CardView is a card as shown to a client
type CardView struct {
	ID      CardID `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// TableCardView is a table entry as shown to the room
type TableCardView struct {
	ID      CardID `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Taken   bool   `json:"taken"`
}

// PlayerView is the public part of a player
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	HandCount int    `json:"handCount"`
}

// Connected tells a client the identity assigned to its connection
type Connected struct {
	PlayerID string `json:"playerId"`
}

type RoomCreated struct {
	Code string `json:"code"`
}

type LobbyState struct {
	Players []string `json:"players"`
	AdminID string   `json:"adminId"`
}

// State is the public snapshot broadcast after every gameplay mutation
type State struct {
	Phase      string          `json:"phase"`
	Players    []PlayerView    `json:"players"`
	ActiveID   string          `json:"activeId"`
	Table      []TableCardView `json:"table"`
	DeckLeft   int             `json:"deckLeft"`
	Revealed   bool            `json:"revealed"`
	FinalRound bool            `json:"finalRound"`
}

// Hand is sent privately to each player
type Hand struct {
	Cards []CardView `json:"cards"`
}

type StartCountdown struct {
	Seconds int `json:"seconds"`
}

type Reveal struct{}

type CardClaimed struct {
	CardID CardID `json:"cardId"`
	ByName string `json:"byName"`
}

type PairReveal struct {
	ByName string   `json:"byName"`
	CardA  CardView `json:"cardA"`
	CardB  CardView `json:"cardB"`
}

type PairSuccess struct {
	ByName   string   `json:"byName"`
	PlayerID string   `json:"playerId"`
	Score    int      `json:"score"`
	CardA    CardView `json:"cardA"`
	CardB    CardView `json:"cardB"`
}

type PairFail struct {
	ByName string `json:"byName"`
}

type FinalRound struct {
	InitiatorName string `json:"initiatorName"`
}

type GameOverFinal struct {
	WinnerNames []string `json:"winnerNames"`
	AdminID     string   `json:"adminId"`
}

// Error is the only user-visible failure notification
type Error struct {
	Message string `json:"message"`
}

func (Connected) Type() EventType      { return EventConnected }
func (RoomCreated) Type() EventType    { return EventRoomCreated }
func (LobbyState) Type() EventType     { return EventLobbyState }
func (State) Type() EventType          { return EventState }
func (Hand) Type() EventType           { return EventHand }
func (StartCountdown) Type() EventType { return EventStartCountdown }
func (Reveal) Type() EventType         { return EventReveal }
func (CardClaimed) Type() EventType    { return EventCardClaimed }
func (PairReveal) Type() EventType     { return EventPairReveal }
func (PairSuccess) Type() EventType    { return EventPairSuccess }
func (PairFail) Type() EventType       { return EventPairFail }
func (FinalRound) Type() EventType     { return EventFinalRound }
func (GameOverFinal) Type() EventType  { return EventGameOverFinal }
func (Error) Type() EventType          { return EventError }

func (Connected) event()      {}
func (RoomCreated) event()    {}
func (LobbyState) event()     {}
func (State) event()          {}
func (Hand) event()           {}
func (StartCountdown) event() {}
func (Reveal) event()         {}
func (CardClaimed) event()    {}
func (PairReveal) event()     {}
func (PairSuccess) event()    {}
func (PairFail) event()       {}
func (FinalRound) event()     {}
func (GameOverFinal) event()  {}
func (Error) event()          {}

// Notifier delivers events to connections. Subscribe must be called before
// a player can receive room broadcasts.
type Notifier interface {
	Subscribe(playerID, code string)
	Unsubscribe(playerID, code string)
	Broadcast(code string, ev Event)
	Send(playerID string, ev Event)
}

type nopNotifier struct{}

func (nopNotifier) Subscribe(string, string)   {}
func (nopNotifier) Unsubscribe(string, string) {}
func (nopNotifier) Broadcast(string, Event)    {}
func (nopNotifier) Send(string, Event)         {}
