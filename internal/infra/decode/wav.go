package decode

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/go-audio/wav"

	"github.com/osa030/soundbridge/internal/app/audio"
)

type wavDecoder struct{}

func (wavDecoder) Decode(key string, data []byte) (*audio.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read wav samples")
	}
	if pcm.Format == nil {
		return nil, errors.New("wav file has no format chunk")
	}

	depth := pcm.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth < 8 || depth > 32 {
		return nil, errors.Newf("unsupported wav bit depth %d", depth)
	}

	// 8-bit wav is unsigned.
	var bias int
	if depth == 8 {
		bias = 128
	}
	scale := float32(int64(1) << (depth - 1))

	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float32(v-bias) / scale
	}
	return audio.NewBuffer(key, pcm.Format.SampleRate, pcm.Format.NumChannels, samples)
}
