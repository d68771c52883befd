package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger logs to stdout, the stream the api and worker containers ship.
func NewJSONLogger(service, level string) *slog.Logger {
	return New(os.Stdout, service, level)
}

// New writes JSON records tagged with service to w. The MCP server passes
// stderr because stdout carries the protocol. Debug records include the
// source location.
func New(w io.Writer, service, level string) *slog.Logger {
	lvl := levelFromString(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With(slog.String("service", service))
}

// levelFromString accepts slog level names in any case plus "warning".
// Anything unrecognised logs at info.
func levelFromString(level string) slog.Level {
	name := strings.TrimSpace(level)
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
