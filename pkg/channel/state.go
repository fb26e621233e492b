package channel

import "fmt"

// State is the connection state of a Channel.
type State int

const (
	Disconnected State = iota
	// Connecting is held only while OnConnect resolves whether a key is present.
	Connecting
	ConnectedUnpaired
	ConnectedPaired
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case ConnectedUnpaired:
		return "ConnectedUnpaired"
	case ConnectedPaired:
		return "ConnectedPaired"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Connected reports whether s is one of the connected states.
func (s State) Connected() bool {
	return s == ConnectedUnpaired || s == ConnectedPaired
}
