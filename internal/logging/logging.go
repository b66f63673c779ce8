/*
Package logging configures the process-wide zerolog logger: a readable
console writer on stderr plus an optional JSON file sink.
*/
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockflow/internal/config"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New builds the root logger from config. An unknown level falls back to
// info; a file sink that cannot be opened is skipped rather than fatal.
func New(cfg config.Logging) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: consoleTimeFormat,
	}

	var sinks []io.Writer
	sinks = append(sinks, console)

	if path := strings.TrimSpace(cfg.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err == nil {
				sinks = append(sinks, f)
			}
		}
	}

	out := io.Writer(console)
	if len(sinks) > 1 {
		out = zerolog.MultiLevelWriter(sinks...)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
