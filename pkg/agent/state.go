package agent

// State enumerates the conversation state machine. There is no
// terminal state; the machine loops for the daemon's lifetime.
type State int32

const (
	// Idle means the agent is waiting for activation.
	Idle State = iota

	// Recording means an utterance is being captured.
	Recording

	// Processing means the utterance is being transcribed.
	Processing

	// Speaking means a pipeline or routed run is playing back.
	Speaking
)

// String returns the state name for logs and the control API.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case Speaking:
		return "speaking"
	default:
		return "unknown"
	}
}
