// Package state provides session state management.
package state

import (
	"time"

	"github.com/osa030/soundbridge/internal/domain/bridge"
)

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseIdle   Phase = iota // No session started
	PhaseActive              // Recording transitions and reviews
	PhaseEnded               // Ended; kept for export until the next Start
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Ratings are a listener's scores for one transition.
type Ratings struct {
	Continuity int `json:"continuity" validate:"min=1,max=5"`
	Emotional  int `json:"emotional" validate:"min=1,max=5"`
	Contextual int `json:"contextual" validate:"min=1,max=5"`
}

// Feedback holds yes/no answers collected with a review.
type Feedback struct {
	WantToSkip     bool `json:"want_to_skip"`
	FeltDiscomfort bool `json:"felt_discomfort"`
	WouldUseAgain  bool `json:"would_use_again"`
}

// Review is a listener's assessment of the latest transition.
type Review struct {
	TransitionID string    `json:"transition_id"`
	Ratings      Ratings   `json:"ratings"`
	Feedback     Feedback  `json:"additional_feedback"`
	Timestamp    time.Time `json:"timestamp"`
}

// Session is a snapshot of one recording session.
type Session struct {
	ID          string                    `json:"session_id"`
	StartTime   time.Time                 `json:"start_time"`
	EndTime     *time.Time                `json:"end_time,omitempty"`
	Transitions []bridge.TransitionRecord `json:"transitions"`
	Reviews     []Review                  `json:"reviews"`
}
