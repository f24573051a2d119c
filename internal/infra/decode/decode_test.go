package decode

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeWAV writes a 16-bit PCM wav file and returns its bytes.
func encodeWAV(t *testing.T, sampleRate, channels int, data []int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		data     []byte
		expected Format
		wantErr  bool
	}{
		{name: "wav magic", key: "x", data: []byte("RIFF\x00\x00\x00\x00WAVEfmt "), expected: FormatWAV},
		{name: "ogg magic", key: "x", data: []byte("OggS\x00\x02"), expected: FormatVorbis},
		{name: "id3 tag", key: "x", data: []byte("ID3\x04\x00"), expected: FormatMP3},
		{name: "mpeg frame sync", key: "x", data: []byte{0xFF, 0xFB, 0x90, 0x00}, expected: FormatMP3},
		{name: "extension fallback", key: "music/song.MP3", data: []byte("????"), expected: FormatMP3},
		{name: "url extension with query", key: "https://cdn.example.com/env/rain.ogg?sig=abc", data: nil, expected: FormatVorbis},
		{name: "wave extension", key: "a/b.wave", data: nil, expected: FormatWAV},
		{name: "unknown", key: "notes.txt", data: []byte("hello"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Detect(tt.key, tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestRegistry_DecodeWAV(t *testing.T) {
	data := encodeWAV(t, 8000, 2, []int{0, 16384, -16384, 32767})

	buf, err := NewRegistry().Decode("tone.wav", data)
	require.NoError(t, err)

	assert.Equal(t, "tone.wav", buf.Key())
	assert.Equal(t, 8000, buf.SampleRate())
	assert.Equal(t, 2, buf.Channels())
	assert.Equal(t, 2, buf.Frames())
	assert.InDelta(t, 0.0, buf.Sample(0, 0), 1e-6)
	assert.InDelta(t, 0.5, buf.Sample(0, 1), 1e-6)
	assert.InDelta(t, -0.5, buf.Sample(1, 0), 1e-6)
	assert.InDelta(t, 32767.0/32768.0, buf.Sample(1, 1), 1e-6)
}

func TestRegistry_DecodeUnsupported(t *testing.T) {
	_, err := NewRegistry().Decode("readme.txt", []byte("plain text"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_MissingDecoder(t *testing.T) {
	r := &Registry{decoders: make(map[Format]Decoder)}
	_, err := r.Decode("a.wav", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecoders_InvalidData(t *testing.T) {
	tests := []struct {
		name string
		dec  Decoder
	}{
		{name: "mp3", dec: mp3Decoder{}},
		{name: "vorbis", dec: vorbisDecoder{}},
		{name: "wav", dec: wavDecoder{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.dec.Decode("bad", []byte("This is not audio data"))
			assert.Error(t, err)
		})
	}
}
