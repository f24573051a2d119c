// Package decode turns encoded audio files into decoded PCM buffers.
package decode

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/soundbridge/internal/app/audio"
)

// ErrUnsupportedFormat is returned when no decoder matches the data.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format identifies an encoding.
type Format string

const (
	FormatMP3    Format = "mp3"
	FormatVorbis Format = "ogg"
	FormatWAV    Format = "wav"
)

// Decoder decodes a complete encoded file.
type Decoder interface {
	Decode(key string, data []byte) (*audio.Buffer, error)
}

// Registry maps formats to decoders.
type Registry struct {
	decoders map[Format]Decoder
}

// NewRegistry creates a registry with the MP3, Ogg Vorbis and WAV decoders.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[Format]Decoder)}
	r.Register(FormatMP3, mp3Decoder{})
	r.Register(FormatVorbis, vorbisDecoder{})
	r.Register(FormatWAV, wavDecoder{})
	return r
}

// Register adds or replaces the decoder for f.
func (r *Registry) Register(f Format, d Decoder) {
	r.decoders[f] = d
}

// Decode detects the format of data and decodes it.
func (r *Registry) Decode(key string, data []byte) (*audio.Buffer, error) {
	f, err := Detect(key, data)
	if err != nil {
		return nil, err
	}
	d, ok := r.decoders[f]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "no decoder registered for %s", f)
	}
	buf, err := d.Decode(key, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", f)
	}
	return buf, nil
}

// Detect identifies the format from magic bytes, falling back to the file
// extension of key.
func Detect(key string, data []byte) (Format, error) {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV, nil
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatVorbis, nil
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3, nil
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	}

	switch ext(key) {
	case ".mp3":
		return FormatMP3, nil
	case ".ogg", ".oga":
		return FormatVorbis, nil
	case ".wav", ".wave":
		return FormatWAV, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%q", key)
}

func ext(key string) string {
	p := key
	if u, err := url.Parse(key); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}
