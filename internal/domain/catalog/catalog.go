// Package catalog provides the Catalog domain entity: the songs and
// environmental sounds available for transitions.
package catalog

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/soundbridge/internal/domain/track"
)

// ErrNotFound is returned when an ID is not in the catalog.
var ErrNotFound = errors.New("not found in catalog")

// Catalog indexes songs and environmental sounds by ID.
type Catalog struct {
	Songs  []track.Song
	Sounds []track.EnvironmentalSound

	songIndex  map[string]int
	soundIndex map[string]int
}

// New creates a catalog. IDs must be unique within each list.
func New(songs []track.Song, sounds []track.EnvironmentalSound) (*Catalog, error) {
	c := &Catalog{
		Songs:      songs,
		Sounds:     sounds,
		songIndex:  make(map[string]int, len(songs)),
		soundIndex: make(map[string]int, len(sounds)),
	}
	for i, s := range songs {
		if _, ok := c.songIndex[s.ID]; ok {
			return nil, errors.Newf("duplicate song id %q", s.ID)
		}
		c.songIndex[s.ID] = i
	}
	for i, s := range sounds {
		if _, ok := c.soundIndex[s.ID]; ok {
			return nil, errors.Newf("duplicate sound id %q", s.ID)
		}
		c.soundIndex[s.ID] = i
	}
	return c, nil
}

// Song returns the song with the given ID.
func (c *Catalog) Song(id string) (*track.Song, error) {
	i, ok := c.songIndex[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "song %q", id)
	}
	return &c.Songs[i], nil
}

// Sound returns the environmental sound with the given ID.
func (c *Catalog) Sound(id string) (*track.EnvironmentalSound, error) {
	i, ok := c.soundIndex[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "sound %q", id)
	}
	return &c.Sounds[i], nil
}

// SongIDs returns all song IDs in catalog order.
func (c *Catalog) SongIDs() []string {
	ids := make([]string, len(c.Songs))
	for i, s := range c.Songs {
		ids[i] = s.ID
	}
	return ids
}

// SoundsByCategory returns the sounds in the given category.
func (c *Catalog) SoundsByCategory(cat track.Category) []track.EnvironmentalSound {
	var out []track.EnvironmentalSound
	for _, s := range c.Sounds {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

// Keys returns every distinct storage key, songs first.
func (c *Catalog) Keys() []string {
	seen := make(map[string]struct{}, len(c.Songs)+len(c.Sounds))
	keys := make([]string, 0, len(c.Songs)+len(c.Sounds))
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for i := range c.Songs {
		add(c.Songs[i].Key())
	}
	for i := range c.Sounds {
		add(c.Sounds[i].Key())
	}
	return keys
}
