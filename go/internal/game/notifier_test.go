package game

import (
	"sync"
)

// recorded is one notification in emission order. To is empty for room
// broadcasts.
type recorded struct {
	Room string
	To   string
	Ev   Event
}

type recordingNotifier struct {
	mu   sync.Mutex
	log  []recorded
	subs map[string]map[string]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{subs: make(map[string]map[string]bool)}
}

func (n *recordingNotifier) Subscribe(playerID, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[code] == nil {
		n.subs[code] = make(map[string]bool)
	}
	n.subs[code][playerID] = true
}

func (n *recordingNotifier) Unsubscribe(playerID, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs[code], playerID)
}

func (n *recordingNotifier) Broadcast(code string, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.log = append(n.log, recorded{Room: code, Ev: ev})
}

func (n *recordingNotifier) Send(playerID string, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.log = append(n.log, recorded{To: playerID, Ev: ev})
}

func (n *recordingNotifier) subscribed(code, playerID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.subs[code][playerID]
}

func (n *recordingNotifier) all() []recorded {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]recorded, len(n.log))
	copy(out, n.log)
	return out
}

// broadcasts returns room broadcasts of the given type
func (n *recordingNotifier) broadcasts(t EventType) []Event {
	var out []Event
	for _, r := range n.all() {
		if r.To == "" && r.Ev.Type() == t {
			out = append(out, r.Ev)
		}
	}
	return out
}

func (n *recordingNotifier) count(t EventType) int {
	return len(n.broadcasts(t))
}

func (n *recordingNotifier) lastState() State {
	states := n.broadcasts(EventState)
	if len(states) == 0 {
		return State{}
	}
	return states[len(states)-1].(State)
}

func (n *recordingNotifier) lastLobby() LobbyState {
	lobbies := n.broadcasts(EventLobbyState)
	if len(lobbies) == 0 {
		return LobbyState{}
	}
	return lobbies[len(lobbies)-1].(LobbyState)
}

// lastHand returns the most recent private hand sent to a player
func (n *recordingNotifier) lastHand(playerID string) Hand {
	var hand Hand
	for _, r := range n.all() {
		if r.To == playerID && r.Ev.Type() == EventHand {
			hand = r.Ev.(Hand)
		}
	}
	return hand
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.log = nil
}
