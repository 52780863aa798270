// Package logging builds the service's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/efreitasn/ledgerauction/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger creates a JSON slog.Logger writing to stdout and, when a log
// file is configured, to a rotated file as well. The returned closer
// releases the file.
func NewLogger(cfg *config.Config, stdout io.Writer) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: Level(cfg.LogLevel)}

	if cfg.LogFile == "" {
		return slog.New(slog.NewJSONHandler(stdout, opts)), nopCloser{}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		// Fall back to stdout only.
		logger := slog.New(slog.NewJSONHandler(stdout, opts))
		logger.Warn("log file disabled", slog.String("path", cfg.LogFile), slog.String("error", err.Error()))
		return logger, nopCloser{}
	}

	fileLogger := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}
	writer := io.MultiWriter(stdout, fileLogger)
	return slog.New(slog.NewJSONHandler(writer, opts)), fileLogger
}

// Level maps a configured level name to a slog.Level, defaulting to info.
func Level(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
