package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
engine:
  sample_rate: 48000
storage:
  type: s3
  settings:
    bucket: audio
    region: ap-northeast-1
bridge:
  duration: 6s
  fade_duration: 1500ms
  environmental_sound_id: rain
catalog:
  songs:
    - id: s1
      title: One
      path: music/one.mp3
  sounds:
    - id: rain
      name: Rain
      category: nature
      src: env/rain.ogg
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 48000, cfg.Engine.SampleRate)
	assert.Equal(t, 2, cfg.Engine.Channels)
	assert.Equal(t, 50*time.Millisecond, cfg.Engine.BufferSize)

	assert.Equal(t, int64(512<<20), cfg.Cache.MaxBytes)
	assert.Equal(t, 30*time.Second, cfg.Cache.LoadTimeout)
	assert.Equal(t, 4, cfg.Cache.PreloadConcurrency)

	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "audio", cfg.Storage.Settings["bucket"])

	assert.Equal(t, 6*time.Second, cfg.Bridge.Duration)
	assert.Equal(t, 1500*time.Millisecond, cfg.Bridge.FadeDuration)
	assert.Equal(t, 1, cfg.Bridge.BridgeSoundCount)

	assert.Equal(t, "sessions", cfg.Session.BackupDir)
	assert.Equal(t, 3, cfg.Session.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Session.RetryDelay)

	require.Len(t, cfg.Catalog.Songs, 1)
	require.Len(t, cfg.Catalog.Sounds, 1)
	assert.Equal(t, "env/rain.ogg", cfg.Catalog.Sounds[0].Src)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, 44100, cfg.Engine.SampleRate)
	assert.Equal(t, "direct", cfg.Storage.Type)
	assert.Equal(t, 5*time.Second, cfg.Bridge.Duration)
	assert.Equal(t, time.Second, cfg.Bridge.FadeDuration)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("SOUNDBRIDGE_STORAGE_BUCKET", "from-env")
	t.Setenv("SOUNDBRIDGE_STORAGE_ENDPOINT", "http://localhost:9000")
	t.Setenv("SOUNDBRIDGE_METRICS_ADDR", ":9100")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Storage.Settings["bucket"])
	assert.Equal(t, "http://localhost:9000", cfg.Storage.Settings["endpoint"])
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "fades overlap",
			yaml:   "bridge:\n  duration: 2s\n  fade_duration: 1500ms\n",
			errMsg: "bridge",
		},
		{
			name:   "unknown storage type",
			yaml:   "storage:\n  type: ftp\n",
			errMsg: "Type",
		},
		{
			name:   "too many channels",
			yaml:   "engine:\n  channels: 6\n",
			errMsg: "Channels",
		},
		{
			name:   "too many bridge sounds",
			yaml:   "bridge:\n  bridge_sound_count: 4\n",
			errMsg: "bridge sound count",
		},
		{
			name:   "song without path",
			yaml:   "catalog:\n  songs:\n    - id: s1\n",
			errMsg: "Path",
		},
		{
			name:   "unknown default sound",
			yaml:   "bridge:\n  environmental_sound_id: wind\ncatalog:\n  sounds:\n    - id: rain\n      src: env/rain.ogg\n",
			errMsg: "wind",
		},
		{
			name:   "malformed yaml",
			yaml:   "engine: [",
			errMsg: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
