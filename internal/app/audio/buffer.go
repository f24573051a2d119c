// Package audio defines the audio clock/context contract, decoded PCM buffers,
// gain envelopes and the voice mixer shared by every context implementation.
package audio

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Buffer is decoded, immutable PCM audio.
// Samples are interleaved float32 values in [-1, 1].
type Buffer struct {
	key        string
	sampleRate int
	channels   int
	samples    []float32
}

// NewBuffer creates a buffer. The samples slice is owned by the buffer afterwards
// and must not be modified by the caller.
func NewBuffer(key string, sampleRate, channels int, samples []float32) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate: %d", sampleRate)
	}
	if channels <= 0 {
		return nil, errors.Newf("invalid channel count: %d", channels)
	}
	if len(samples)%channels != 0 {
		return nil, errors.Newf("sample count %d is not a multiple of %d channels", len(samples), channels)
	}
	return &Buffer{
		key:        key,
		sampleRate: sampleRate,
		channels:   channels,
		samples:    samples,
	}, nil
}

// Key returns the logical key the buffer was loaded from.
func (b *Buffer) Key() string { return b.key }

// SampleRate returns the sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Channels returns the channel count.
func (b *Buffer) Channels() int { return b.channels }

// Frames returns the number of frames (samples per channel).
func (b *Buffer) Frames() int { return len(b.samples) / b.channels }

// Size returns the memory footprint of the sample data in bytes.
func (b *Buffer) Size() int64 { return int64(len(b.samples)) * 4 }

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.sampleRate)
}

// Sample returns the sample at frame for channel ch. Channels beyond the
// buffer's own count wrap around, so mono material feeds every output channel.
func (b *Buffer) Sample(frame, ch int) float32 {
	if frame < 0 || frame >= b.Frames() {
		return 0
	}
	return b.samples[frame*b.channels+ch%b.channels]
}

// SampleAt returns the linearly interpolated sample at position pos (relative
// to the start of the buffer) for channel ch.
func (b *Buffer) SampleAt(pos time.Duration, ch int) float32 {
	if pos < 0 {
		return 0
	}
	exact := pos.Seconds() * float64(b.sampleRate)
	frame := int(exact)
	frac := float32(exact - float64(frame))
	a := b.Sample(frame, ch)
	if frac == 0 {
		return a
	}
	return a + (b.Sample(frame+1, ch)-a)*frac
}
