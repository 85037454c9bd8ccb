// Package logging builds the slog logger shared by the server and client.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Prefix string
	Output io.Writer
}

// New returns a slog.Logger backed by a charmbracelet/log handler.
func New(opts Options) (*slog.Logger, error) {
	level := charmlog.InfoLevel
	if opts.Level != "" {
		l, err := charmlog.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	formatter := charmlog.TextFormatter
	switch opts.Format {
	case "", "text":
	case "json":
		formatter = charmlog.JSONFormatter
	default:
		return nil, fmt.Errorf("log format: unknown %q", opts.Format)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handler := charmlog.NewWithOptions(out, charmlog.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	return slog.New(handler), nil
}

// Discard is a logger for tests and quiet commands.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
