package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // json, text
}

// Init installs the process-wide logger. Only the first call has effect.
func Init(cfg Config) {
	once.Do(func() {
		logger = New(cfg, os.Stdout)
		slog.SetDefault(logger)
	})
}

// New builds a logger writing to w.
func New(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Get returns the global logger, initialising a default one if needed.
func Get() *slog.Logger {
	Init(Config{Level: "INFO", Format: "json"})
	return logger
}
