package decode

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/osa030/soundbridge/internal/app/audio"
)

// go-mp3 always produces 16-bit little-endian stereo.
const mp3Channels = 2

type mp3Decoder struct{}

func (mp3Decoder) Decode(key string, data []byte) (*audio.Buffer, error) {
	dec, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mp3 stream")
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read mp3 frames")
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		samples[i] = float32(v) / 32768.0
	}
	return audio.NewBuffer(key, dec.SampleRate(), mp3Channels, samples)
}
