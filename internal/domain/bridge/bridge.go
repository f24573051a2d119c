// Package bridge provides the bridge transition configuration and the record
// of a completed transition.
package bridge

import (
	"time"

	"github.com/cockroachdb/errors"
)

// MaxBridgeSounds is the largest number of bridge sounds layered in one transition.
const MaxBridgeSounds = 3

// Config describes the shape of one bridge transition.
type Config struct {
	Duration             time.Duration `yaml:"duration" json:"duration" default:"5s"`                    // Total transition length
	FadeDuration         time.Duration `yaml:"fade_duration" json:"fade_duration" default:"1s"`          // Length of each fade
	EnvironmentalSoundID string        `yaml:"environmental_sound_id" json:"environmental_sound_id"`     // Default bridge sound
	CrossfadeOffset      time.Duration `yaml:"crossfade_offset" json:"crossfade_offset" default:"0s"`    // Start position in the next track
	BridgeSoundCount     int           `yaml:"bridge_sound_count" json:"bridge_sound_count" default:"1"` // Layered bridge sounds
}

// Validate checks that the fades fit inside the transition.
func (c Config) Validate() error {
	switch {
	case c.Duration <= 0:
		return errors.Newf("bridge duration must be positive, got %s", c.Duration)
	case c.FadeDuration <= 0:
		return errors.Newf("fade duration must be positive, got %s", c.FadeDuration)
	case c.FadeDuration >= c.Duration-c.FadeDuration:
		return errors.Newf("fade duration %s is too long for bridge duration %s", c.FadeDuration, c.Duration)
	case c.CrossfadeOffset < 0:
		return errors.Newf("crossfade offset must not be negative, got %s", c.CrossfadeOffset)
	case c.BridgeSoundCount < 1 || c.BridgeSoundCount > MaxBridgeSounds:
		return errors.Newf("bridge sound count must be between 1 and %d, got %d", MaxBridgeSounds, c.BridgeSoundCount)
	}
	return nil
}

// TransitionRecord describes a completed transition for session logging.
type TransitionRecord struct {
	ID           string    `json:"id"`
	FromTrack    string    `json:"from_track"`
	ToTrack      string    `json:"to_track"`
	BridgeSounds []string  `json:"bridge_sounds"`
	Config       Config    `json:"config"`
	Timestamp    time.Time `json:"timestamp"`
}

// BridgeSound returns the primary bridge sound key.
func (r TransitionRecord) BridgeSound() string {
	if len(r.BridgeSounds) == 0 {
		return ""
	}
	return r.BridgeSounds[0]
}
