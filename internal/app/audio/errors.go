package audio

import "github.com/cockroachdb/errors"

// Error classes. Concrete errors are marked with one of these so callers can
// branch with errors.Is without caring about the message.
var (
	ErrInitialization = errors.New("initialization error") // engine not ready or already disposed
	ErrLoad           = errors.New("load error")           // fetch or decode failed; the key is not cached
	ErrPlayback       = errors.New("playback error")       // operation invalid in the current state
	ErrCleanup        = errors.New("cleanup error")        // stopping a finished source; always swallowed
)

// Concrete errors.
var (
	ErrNotInitialized       = errors.Mark(errors.New("engine not initialized"), ErrInitialization)
	ErrContextClosed        = errors.Mark(errors.New("audio context closed"), ErrInitialization)
	ErrNoActiveTrack        = errors.Mark(errors.New("no active track to transition from"), ErrPlayback)
	ErrTransitionInProgress = errors.Mark(errors.New("transition already in progress"), ErrPlayback)
	ErrNotPlaying           = errors.Mark(errors.New("not playing"), ErrPlayback)
	ErrNotPaused            = errors.Mark(errors.New("not paused"), ErrPlayback)
	ErrAlreadyStarted       = errors.Mark(errors.New("source already started"), ErrPlayback)
	ErrNotStarted           = errors.Mark(errors.New("source not started"), ErrCleanup)
	ErrAlreadyStopped       = errors.Mark(errors.New("source already stopped"), ErrCleanup)
)

// LoadError marks err as a load failure for key.
func LoadError(err error, key string) error {
	return errors.Mark(errors.Wrapf(err, "failed to load %q", key), ErrLoad)
}

// PlaybackError marks err as a playback failure.
func PlaybackError(err error) error {
	return errors.Mark(err, ErrPlayback)
}
