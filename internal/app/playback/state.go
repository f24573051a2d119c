// Package playback provides the bridge transition engine: a controller that
// plays decoded buffers and moves between them through environmental sounds.
package playback

// State represents the playback state.
type State int

const (
	StateIdle          State = iota // Created; audio context not resumed
	StateInitializing               // Resuming the audio context
	StateReady                      // Initialized; nothing playing
	StatePlaying                    // A track is playing
	StatePaused                     // Audio clock suspended
	StateTransitioning              // Bridge transition scheduled; commit pending
	StateDisposed                   // Released; terminal
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateTransitioning:
		return "transitioning"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// IsPlaying reports whether audio is audibly running in this state.
func (s State) IsPlaying() bool {
	return s == StatePlaying || s == StateTransitioning
}

// allStates lists every state for the state gauge.
var allStates = []string{
	StateIdle.String(),
	StateInitializing.String(),
	StateReady.String(),
	StatePlaying.String(),
	StatePaused.String(),
	StateTransitioning.String(),
	StateDisposed.String(),
}
