// Package logger configures the process-wide zerolog logger and hands out
// component sub-loggers.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or "file"
	Level  string // "debug", "info", "warn", "error"
	Format string // "console" or "json"; empty picks console for terminals, json for files
	File   string // log file path (used when Output is "file")
}

// Init initializes the global zerolog logger with the given configuration.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)

	format := strings.ToLower(cfg.Format)
	if format != "" && format != "console" && format != "json" {
		return errors.Newf("unknown log format %q", cfg.Format)
	}

	writer, isFile, err := openWriter(cfg)
	if err != nil {
		return err
	}
	if format == "" {
		format = "console"
		if isFile {
			format = "json"
		}
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.CallerMarshalFunc = shortCaller

	if format == "console" {
		writer = consoleWriter(writer, level, isFile)
	}
	ctx := zerolog.New(writer).With().Timestamp()
	// Caller is only worth its cost while debugging.
	if level == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	logger := ctx.Logger()

	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger
	return nil
}

// Component returns a sub-logger of the global logger tagged with the
// component name. Call it after Init so the configured output is used.
func Component(name string) zerolog.Logger {
	return zlog.With().Str("component", name).Logger()
}

// openWriter resolves the output and reports whether it is a file.
func openWriter(cfg Config) (io.Writer, bool, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		return os.Stdout, false, nil
	case "stderr":
		return os.Stderr, false, nil
	case "file":
		if cfg.File == "" {
			return nil, false, errors.New("log file path is required for file output")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to open log file")
		}
		return f, true, nil
	default:
		return nil, false, errors.Newf("unknown log output %q", cfg.Output)
	}
}

func consoleWriter(out io.Writer, level zerolog.Level, noColor bool) zerolog.ConsoleWriter {
	w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: noColor}
	if level == zerolog.DebugLevel {
		w.PartsOrder = []string{"time", "level", "message", "caller"}
		w.FormatCaller = func(i any) string {
			return "(" + i.(string) + ")"
		}
	}
	return w
}

// shortCaller trims the caller to its last directory and file.
func shortCaller(_ uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
