// Package track provides the Song and EnvironmentalSound domain entities.
package track

import "time"

// Song represents a music track that can be transitioned from or to.
type Song struct {
	ID       string        `yaml:"id" validate:"required"`
	Title    string        `yaml:"title"`
	Artist   string        `yaml:"artist"`
	Path     string        `yaml:"path" validate:"required"` // Storage key or direct URL
	AlbumArt string        `yaml:"album_art"`
	Duration time.Duration `yaml:"duration"`
}

// Category groups environmental sounds.
type Category string

const (
	CategoryNature Category = "nature"
	CategoryUrban  Category = "urban"
)

// EnvironmentalSound represents a bridge sound played between two songs.
type EnvironmentalSound struct {
	ID              string   `yaml:"id" validate:"required"`
	Name            string   `yaml:"name"`
	Category        Category `yaml:"category" validate:"omitempty,oneof=nature urban"`
	SubCategory     string   `yaml:"sub_category"`
	Characteristics []string `yaml:"characteristics"`
	Src             string   `yaml:"src" validate:"required"` // Storage key or direct URL
	Thumbnail       string   `yaml:"thumbnail"`
}

// Key returns the buffer cache key of the song.
func (s *Song) Key() string {
	return s.Path
}

// Label returns a human readable name for logs and listings.
func (s *Song) Label() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Artist + " - " + s.Title
}

// Key returns the buffer cache key of the sound.
func (e *EnvironmentalSound) Key() string {
	return e.Src
}

// HasCharacteristic reports whether the sound is tagged with c.
func (e *EnvironmentalSound) HasCharacteristic(c string) bool {
	for _, v := range e.Characteristics {
		if v == c {
			return true
		}
	}
	return false
}
