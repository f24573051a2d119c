package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/soundbridge/internal/domain/bridge"
)

func TestNewTimeline(t *testing.T) {
	const s = time.Second
	t0 := 10 * s

	tests := []struct {
		name     string
		duration time.Duration
		fade     time.Duration
		want     Timeline
	}{
		{
			name:     "default config",
			duration: 5 * s,
			fade:     1 * s,
			want: Timeline{
				T0:              t0,
				CurrentFadeEnd:  11 * s,
				BridgeStart:     11 * s,
				BridgePeak:      12 * s,
				BridgeFadeStart: 13 * s,
				BridgeEnd:       14 * s,
				NextStart:       14 * s,
				NextPeak:        15 * s,
				Cleanup:         16 * s,
			},
		},
		{
			name:     "rise and fall meet",
			duration: 3500 * time.Millisecond,
			fade:     1 * s,
			want: Timeline{
				T0:              t0,
				CurrentFadeEnd:  11 * s,
				BridgeStart:     11 * s,
				BridgePeak:      12 * s,
				BridgeFadeStart: 12 * s,
				BridgeEnd:       12500 * time.Millisecond,
				NextStart:       12500 * time.Millisecond,
				NextPeak:        13500 * time.Millisecond,
				Cleanup:         14500 * time.Millisecond,
			},
		},
		{
			name:     "short bridge peaks at its middle",
			duration: 2500 * time.Millisecond,
			fade:     1 * s,
			want: Timeline{
				T0:              t0,
				CurrentFadeEnd:  11 * s,
				BridgeStart:     11 * s,
				BridgePeak:      11250 * time.Millisecond,
				BridgeFadeStart: 11250 * time.Millisecond,
				BridgeEnd:       11500 * time.Millisecond,
				NextStart:       11500 * time.Millisecond,
				NextPeak:        12500 * time.Millisecond,
				Cleanup:         13500 * time.Millisecond,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := bridge.Config{Duration: tt.duration, FadeDuration: tt.fade, BridgeSoundCount: 1}
			got := NewTimeline(t0, cfg)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.duration+tt.fade, got.Duration())
			assert.LessOrEqual(t, got.BridgeStart, got.BridgePeak)
			assert.LessOrEqual(t, got.BridgePeak, got.BridgeFadeStart)
			assert.LessOrEqual(t, got.BridgeFadeStart, got.BridgeEnd)
		})
	}
}
