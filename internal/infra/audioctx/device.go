package audioctx

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/oto/v3"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/soundbridge/internal/app/audio"
)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedOto(cfg DeviceConfig) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   cfg.BufferSize,
		}
		c, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = errors.Mark(errors.Wrap(err, "failed to open audio device"), audio.ErrInitialization)
			return
		}
		<-ready
		otoCtx = c
	})
	return otoCtx, otoErr
}

// player is the output stream of one Device. *oto.Player implements it.
type player interface {
	Play()
	Pause()
	Close() error
}

// openPlayer attaches r to the process-wide output. The shared context is
// never suspended by a Device, only its own player is paused.
var openPlayer = func(cfg DeviceConfig, r io.Reader) (player, error) {
	out, err := sharedOto(cfg)
	if err != nil {
		return nil, err
	}
	if err := out.Resume(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to resume audio device"), audio.ErrInitialization)
	}
	return out.NewPlayer(r), nil
}

// DeviceConfig configures the hardware output.
type DeviceConfig struct {
	SampleRate int
	Channels   int
	BufferSize time.Duration
}

// Device is an audio context backed by the system output. Its clock counts
// frames handed to the device, so it stops while the output is suspended.
type Device struct {
	cfg DeviceConfig

	mu     sync.Mutex
	state  audio.ContextState
	player player

	frames  atomic.Int64
	mixer   *audio.Mixer
	timers  *audio.TimerQueue
	scratch []float32

	fire chan []func()
	done chan struct{}
	once sync.Once
}

// NewDevice creates a suspended device context. The output is opened on the
// first Resume.
func NewDevice(cfg DeviceConfig) (*Device, error) {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return nil, errors.Mark(
			errors.Newf("invalid device format: %d Hz, %d channels", cfg.SampleRate, cfg.Channels),
			audio.ErrInitialization,
		)
	}
	return &Device{
		cfg:    cfg,
		state:  audio.ContextSuspended,
		mixer:  audio.NewMixer(),
		timers: audio.NewTimerQueue(),
		fire:   make(chan []func(), 64),
		done:   make(chan struct{}),
	}, nil
}

// CurrentTime returns the time of the next frame to be rendered.
func (d *Device) CurrentTime() time.Duration {
	return d.timeOf(d.frames.Load())
}

func (d *Device) timeOf(frames int64) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(d.cfg.SampleRate)
}

// State returns the run state.
func (d *Device) State() audio.ContextState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Resume opens the output on first use and starts pulling frames.
func (d *Device) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case audio.ContextClosed:
		return audio.ErrContextClosed
	case audio.ContextRunning:
		return nil
	}

	if d.player == nil {
		p, err := openPlayer(d.cfg, d)
		if err != nil {
			return err
		}
		d.player = p
		d.once.Do(func() { go d.dispatch() })
	}
	d.player.Play()

	d.state = audio.ContextRunning
	zlog.Debug().Msgf("audio device running at %s", d.CurrentTime())
	return nil
}

// Suspend pauses this device's player; the clock stops with it.
func (d *Device) Suspend(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case audio.ContextClosed:
		return audio.ErrContextClosed
	case audio.ContextSuspended:
		return nil
	}

	if d.player != nil {
		d.player.Pause()
	}
	d.state = audio.ContextSuspended
	return nil
}

// Close stops every voice and releases the player. The process-wide output
// stays open for the next Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == audio.ContextClosed {
		return nil
	}
	d.state = audio.ContextClosed
	d.mixer.StopAll(d.CurrentTime())
	d.timers.Clear()
	close(d.done)

	if d.player == nil {
		return nil
	}
	d.player.Pause()
	if err := d.player.Close(); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to close player"), audio.ErrCleanup)
	}
	return nil
}

// NewVoice creates an unstarted voice for buf.
func (d *Device) NewVoice(buf *audio.Buffer) (audio.Source, audio.Gain, error) {
	if d.State() == audio.ContextClosed {
		return nil, nil, audio.ErrContextClosed
	}
	if buf.SampleRate() != d.cfg.SampleRate {
		zlog.Warn().Msgf("buffer %q sample rate %d differs from device rate %d", buf.Key(), buf.SampleRate(), d.cfg.SampleRate)
	}
	src, gain := d.mixer.NewVoice(buf)
	return src, gain, nil
}

// AfterFunc schedules fn once the device clock reaches at. Callbacks run on a
// dispatcher goroutine, never on the render path.
func (d *Device) AfterFunc(at time.Duration, fn func()) func() bool {
	return d.timers.Add(at, fn)
}

// Read renders the next block of float32 little-endian frames. It is called
// by the output player.
func (d *Device) Read(p []byte) (int, error) {
	frameBytes := 4 * d.cfg.Channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	select {
	case <-d.done:
		clear(p)
		return len(p), nil
	default:
	}

	n := frames * d.cfg.Channels
	if cap(d.scratch) < n {
		d.scratch = make([]float32, n)
	}
	buf := d.scratch[:n]

	from := d.frames.Load()
	d.mixer.Render(buf, d.cfg.Channels, d.cfg.SampleRate, d.timeOf(from))
	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	now := d.timeOf(d.frames.Add(int64(frames)))

	if due := d.timers.PopDue(now); len(due) > 0 {
		select {
		case d.fire <- due:
		case <-d.done:
		}
	}
	return frames * frameBytes, nil
}

func (d *Device) dispatch() {
	for {
		select {
		case fns := <-d.fire:
			for _, fn := range fns {
				fn()
			}
		case <-d.done:
			return
		}
	}
}
