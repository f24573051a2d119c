package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSong_Label(t *testing.T) {
	tests := []struct {
		name     string
		song     Song
		expected string
	}{
		{
			name:     "with artist",
			song:     Song{Title: "Morning", Artist: "Quiet Band"},
			expected: "Quiet Band - Morning",
		},
		{
			name:     "title only",
			song:     Song{Title: "Morning"},
			expected: "Morning",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.song.Label())
		})
	}
}

func TestKeys(t *testing.T) {
	song := &Song{ID: "s1", Path: "music/s1.mp3"}
	sound := &EnvironmentalSound{ID: "e1", Src: "https://cdn.example.com/rain.ogg"}

	assert.Equal(t, "music/s1.mp3", song.Key())
	assert.Equal(t, "https://cdn.example.com/rain.ogg", sound.Key())
}

func TestEnvironmentalSound_HasCharacteristic(t *testing.T) {
	sound := &EnvironmentalSound{
		ID:              "rain",
		Category:        CategoryNature,
		Characteristics: []string{"calm", "steady"},
	}

	tests := []struct {
		name     string
		tag      string
		expected bool
	}{
		{name: "present", tag: "calm", expected: true},
		{name: "absent", tag: "busy", expected: false},
		{name: "case sensitive", tag: "Calm", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sound.HasCharacteristic(tt.tag))
		})
	}
}
