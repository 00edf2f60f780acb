package pwsh

// State is the lifecycle state of a Session.
type State uint8

const (
	StateUninitialized State = iota
	StateIdle                // started, waiting for a command
	StateRunning             // a command was sent and has not completed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
