package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectResolver_ResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		key      string
		expected string
		wantErr  bool
	}{
		{
			name:     "base url",
			settings: map[string]any{"base_url": "https://cdn.example.com/audio/"},
			key:      "music/one.mp3",
			expected: "https://cdn.example.com/audio/music/one.mp3",
		},
		{
			name:     "base dir",
			settings: map[string]any{"base_dir": "/srv/audio"},
			key:      "music/one.mp3",
			expected: filepath.Join("/srv/audio", "music/one.mp3"),
		},
		{
			name:     "direct key bypasses base",
			settings: map[string]any{"base_url": "https://cdn.example.com"},
			key:      "https://other.example.com/x.ogg",
			expected: "https://other.example.com/x.ogg",
		},
		{
			name:     "no base",
			settings: nil,
			key:      "music/one.mp3",
			expected: "music/one.mp3",
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewDirectResolver(tt.settings, nil)
			require.NoError(t, err)

			got, err := r.ResolveURL(context.Background(), tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewDirectResolver_InvalidBaseURL(t *testing.T) {
	_, err := NewDirectResolver(map[string]any{"base_url": "::nope"}, nil)
	assert.Error(t, err)
}
