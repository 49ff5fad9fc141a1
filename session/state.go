package session

// State is a step of the session lifecycle. States only move forward.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateEnabling
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateEnabling:
		return "enabling"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
