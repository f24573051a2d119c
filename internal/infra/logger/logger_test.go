package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{input: "debug", expected: zerolog.DebugLevel},
		{input: "INFO", expected: zerolog.InfoLevel},
		{input: "", expected: zerolog.InfoLevel},
		{input: "warning", expected: zerolog.WarnLevel},
		{input: "error", expected: zerolog.ErrorLevel},
		{input: "verbose", expected: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestInit_FileOutputWithComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soundbridge.log")
	require.NoError(t, Init(Config{Output: "file", Level: "info", File: path}))
	t.Cleanup(func() {
		_ = Init(Config{Output: "stderr", Level: "info"})
	})

	log := Component("cache")
	log.Info().Msg("loaded")
	log.Debug().Msg("filtered")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "cache", entry["component"])
	assert.Equal(t, "loaded", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestInit_ConsoleFormatToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soundbridge.log")
	require.NoError(t, Init(Config{Output: "file", Level: "info", Format: "console", File: path}))
	t.Cleanup(func() {
		_ = Init(Config{Output: "stderr", Level: "info"})
	})

	log := Component("device")
	log.Info().Msg("opened")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, "opened")
	assert.Contains(t, line, "component=device")
	assert.NotContains(t, line, "\x1b[")
	assert.False(t, json.Valid([]byte(line)))
}

func TestInit_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "file without path", cfg: Config{Output: "file"}},
		{name: "unknown output", cfg: Config{Output: "syslog"}},
		{name: "unknown format", cfg: Config{Output: "stderr", Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Init(tt.cfg))
		})
	}
}

func TestShortCaller(t *testing.T) {
	file := filepath.Join("root", "module", "internal", "app", "cache.go")
	assert.Equal(t, filepath.Join("app", "cache.go")+":12", shortCaller(0, file, 12))
	assert.Equal(t, "main.go:3", shortCaller(0, "main.go", 3))
}
