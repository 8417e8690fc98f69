package protocol

// ActionType names an inbound client action
type ActionType string

const (
	ActionCreateRoom   ActionType = "create_room"
	ActionJoinRoom     ActionType = "join_room"
	ActionStartGame    ActionType = "start_game"
	ActionPlayCard     ActionType = "play_card"
	ActionClaimCard    ActionType = "claim_card"
	ActionMakePair     ActionType = "make_pair"
	ActionPassTurn     ActionType = "pass_turn"
	ActionContinueGame ActionType = "continue_game"
)

// Action is a decoded, shape-validated inbound message. The set of
// implementations is closed to this package.
type Action interface {
	Type() ActionType
	action()
}

// RoomAction is implemented by every action addressed to an existing room
type RoomAction interface {
	Action
	RoomCode() string
}

type CreateRoom struct {
	Name string `json:"name"`
}

type JoinRoom struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type StartGame struct {
	Code string `json:"code"`
}

type PlayCard struct {
	Code string `json:"code"`
}

type ClaimCard struct {
	Code   string `json:"code"`
	CardID string `json:"cardId"`
}

// MakePair names the two cards of a pair attempt. Older clients send
// yesId/noId instead of cardA/cardB.
type MakePair struct {
	Code  string `json:"code"`
	CardA string `json:"cardA"`
	CardB string `json:"cardB"`
	YesID string `json:"yesId,omitempty"`
	NoID  string `json:"noId,omitempty"`
}

type PassTurn struct {
	Code string `json:"code"`
}

type ContinueGame struct {
	Code string `json:"code"`
}

func (CreateRoom) Type() ActionType   { return ActionCreateRoom }
func (JoinRoom) Type() ActionType     { return ActionJoinRoom }
func (StartGame) Type() ActionType    { return ActionStartGame }
func (PlayCard) Type() ActionType     { return ActionPlayCard }
func (ClaimCard) Type() ActionType    { return ActionClaimCard }
func (MakePair) Type() ActionType     { return ActionMakePair }
func (PassTurn) Type() ActionType     { return ActionPassTurn }
func (ContinueGame) Type() ActionType { return ActionContinueGame }

func (CreateRoom) action()   {}
func (JoinRoom) action()     {}
func (StartGame) action()    {}
func (PlayCard) action()     {}
func (ClaimCard) action()    {}
func (MakePair) action()     {}
func (PassTurn) action()     {}
func (ContinueGame) action() {}

func (a JoinRoom) RoomCode() string     { return a.Code }
func (a StartGame) RoomCode() string    { return a.Code }
func (a PlayCard) RoomCode() string     { return a.Code }
func (a ClaimCard) RoomCode() string    { return a.Code }
func (a MakePair) RoomCode() string     { return a.Code }
func (a PassTurn) RoomCode() string     { return a.Code }
func (a ContinueGame) RoomCode() string { return a.Code }
