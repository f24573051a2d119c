package playback

import (
	"time"

	"github.com/osa030/soundbridge/internal/domain/bridge"
)

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged        EventType = iota // Playback state changed
	EventTrackStarted                         // A track started playing
	EventTrackEnded                           // The current track reached its end
	EventTransitionStarted                    // A bridge transition was scheduled
	EventTransitionCompleted                  // A bridge transition committed
	EventTransitionCancelled                  // A pending transition was dropped by Dispose
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventTransitionStarted:
		return "transition_started"
	case EventTransitionCompleted:
		return "transition_completed"
	case EventTransitionCancelled:
		return "transition_cancelled"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type       EventType
	State      State                    // State after the event
	Key        string                   // Key of the current buffer (empty if none)
	At         time.Duration            // Audio context time
	Transition *bridge.TransitionRecord // Set for transition events
}
