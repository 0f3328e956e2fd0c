// Package logging builds the process-wide structured logger. Every log
// line is one JSON object on stdout with a stable "service" attribute,
// so log pipelines can filter by emitter without parsing messages.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewJSONLogger returns a JSON slog logger at the named level.
// Unrecognized levels fall back to info rather than failing startup.
func NewJSONLogger(service, level string) *slog.Logger {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("service", service)
}
