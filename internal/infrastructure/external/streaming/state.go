package streaming

// State is the connection state of a Client
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StatePausedSend
	StateClosing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StatePausedSend:
		return "PAUSED_SEND"
	case StateClosing:
		return "CLOSING"
	case StateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// streaming reports whether the connection is established and not torn down
func (s State) streaming() bool {
	return s == StateOpen || s == StatePausedSend
}
