package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/STRATINT/followbot/internal/config"
)

// Open constructs the console logger and, when cfg.ActivityLogPath is set,
// tees every record into the append-only activity log. The returned closer
// releases the activity log file and must be called at the end of the run.
func Open(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	console, err := buildHandler(cfg, os.Stdout)
	if err != nil {
		return nil, nil, err
	}

	if cfg.ActivityLogPath == "" {
		return slog.New(console), nopCloser{}, nil
	}

	f, err := os.OpenFile(cfg.ActivityLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open activity log: %w", err)
	}

	activity := NewActivityHandler(f, cfg.Level)
	return slog.New(Fanout(console, activity)), f, nil
}

// NewActivityHandler returns the human readable handler used for the activity
// log: one "time=... level=... msg=..." line per record.
func NewActivityHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

func buildHandler(cfg config.LoggingConfig, w io.Writer) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	switch cfg.Format {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
}

// Discard returns a logger that drops every record. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
