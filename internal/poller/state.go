package poller

// State is a phase of one run.
type State int

const (
	// StateIdle is the state before Run is called.
	StateIdle State = iota
	// StateStreaming reads, parses and dispatches samples.
	StateStreaming
	// StateDraining flushes the email digest after the source is exhausted.
	StateDraining
	// StateDone is terminal.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
