package playback

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/osa030/soundbridge/internal/app/audio"
)

// Node is a single-use playable source routed through its own gain.
type Node struct {
	ID     string
	Buffer *audio.Buffer
	Source audio.Source
	Gain   audio.Gain

	startAt time.Duration
	offset  time.Duration
	started bool
}

// NewNode creates an unstarted node for buf. It is silent until started.
func NewNode(actx audio.Context, buf *audio.Buffer) (*Node, error) {
	if buf == nil {
		return nil, audio.PlaybackError(errors.New("nil buffer"))
	}
	src, gain, err := actx.NewVoice(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create node for %q", buf.Key())
	}
	return &Node{
		ID:     uuid.NewString(),
		Buffer: buf,
		Source: src,
		Gain:   gain,
	}, nil
}

// Start schedules playback at context time at, offset into the buffer.
func (n *Node) Start(at, offset time.Duration) error {
	if err := n.Source.Start(at, offset); err != nil {
		return errors.Wrapf(err, "failed to start %q", n.Buffer.Key())
	}
	n.startAt = at
	n.offset = offset
	n.started = true
	return nil
}

// StartedAt returns the context time the node starts at.
func (n *Node) StartedAt() time.Duration {
	return n.startAt
}

// EndsAt returns the context time the buffer runs out.
func (n *Node) EndsAt() time.Duration {
	return n.startAt + n.Buffer.Duration() - n.offset
}

// Key returns the buffer key.
func (n *Node) Key() string {
	return n.Buffer.Key()
}

// stopNode stops n at time at. Errors are cleanup errors and only logged.
func stopNode(log zerolog.Logger, n *Node, at time.Duration) {
	if n == nil {
		return
	}
	if err := n.Source.Stop(at); err != nil {
		log.Debug().Msgf("ignoring stop error for %q: %v", n.Key(), err)
	}
}
