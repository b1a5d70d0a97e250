package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production deployments run with
// LOG_FORMAT=json so log shippers get structured records; everything else
// gets the readable text handler.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("app", "quillbooks"))
}
