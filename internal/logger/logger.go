// Package logger builds the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level  slog.Level
	Format string    // "json" or "text"
	Output io.Writer // defaults to stdout
}

func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
	}
}

// FromStrings builds a Config from LOG_LEVEL / LOG_FORMAT style values.
// Unknown levels fall back to info.
func FromStrings(level, format string) Config {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	if strings.EqualFold(format, "text") {
		cfg.Format = "text"
	}
	return cfg
}

func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// New creates a logger and installs it as the slog default.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
