package adapter

// State tracks the adapter lifecycle.
type State int

// Adapter lifecycle states.
const (
	StateCreated State = iota
	StateStarting
	StateStarted
	StateStopping
	StateStopped
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
