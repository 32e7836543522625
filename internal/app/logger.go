package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. Production gets JSON at
// Info level; everything else gets a readable text handler at Debug.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if cfg != nil && cfg.IsProduction() {
		opts.Level = slog.LevelInfo
	}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
