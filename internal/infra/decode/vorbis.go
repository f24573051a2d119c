package decode

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/jfreymuth/oggvorbis"

	"github.com/osa030/soundbridge/internal/app/audio"
)

type vorbisDecoder struct{}

func (vorbisDecoder) Decode(key string, data []byte) (*audio.Buffer, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read ogg vorbis stream")
	}
	return audio.NewBuffer(key, format.SampleRate, format.Channels, samples)
}
