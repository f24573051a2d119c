package bridge

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	valid := Config{Duration: 5 * time.Second, FadeDuration: time.Second, BridgeSoundCount: 1}

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "valid", modify: func(c *Config) {}},
		{name: "zero duration", modify: func(c *Config) { c.Duration = 0 }, wantErr: true},
		{name: "zero fade", modify: func(c *Config) { c.FadeDuration = 0 }, wantErr: true},
		{
			name: "fades overlap",
			modify: func(c *Config) {
				c.Duration = 2 * time.Second
				c.FadeDuration = 1500 * time.Millisecond
			},
			wantErr: true,
		},
		{
			name: "fades exactly fill duration",
			modify: func(c *Config) {
				c.Duration = 2 * time.Second
				c.FadeDuration = time.Second
			},
			wantErr: true,
		},
		{
			name: "short bridge",
			modify: func(c *Config) {
				c.Duration = 2500 * time.Millisecond
				c.FadeDuration = time.Second
			},
		},
		{
			name: "fade too long to double",
			modify: func(c *Config) {
				c.Duration = time.Second
				c.FadeDuration = math.MaxInt64/2 + 1
			},
			wantErr: true,
		},
		{name: "negative offset", modify: func(c *Config) { c.CrossfadeOffset = -time.Second }, wantErr: true},
		{name: "positive offset", modify: func(c *Config) { c.CrossfadeOffset = 10 * time.Second }},
		{name: "no bridge sounds", modify: func(c *Config) { c.BridgeSoundCount = 0 }, wantErr: true},
		{name: "max bridge sounds", modify: func(c *Config) { c.BridgeSoundCount = MaxBridgeSounds }},
		{name: "too many bridge sounds", modify: func(c *Config) { c.BridgeSoundCount = MaxBridgeSounds + 1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransitionRecord_BridgeSound(t *testing.T) {
	assert.Equal(t, "", TransitionRecord{}.BridgeSound())
	assert.Equal(t, "rain", TransitionRecord{BridgeSounds: []string{"rain", "wind"}}.BridgeSound())
}
