package lifecycle

// State represents the current lifecycle state of a unit
type State int

const (
	// StateUninitialized indicates the unit was created but not initialized
	StateUninitialized State = iota
	// StateInitialized indicates the unit was initialized but not started
	StateInitialized
	// StateStarted indicates the unit is running
	StateStarted
	// StateStopped indicates the unit was stopped. It is terminal.
	StateStopped
)

// String returns a string representation of the state
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name so it reads well in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
