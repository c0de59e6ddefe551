// Package logging builds the structured diagnostic logger. User-facing output goes through internal/ui; this logger only records what the engine did.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where diagnostics go.
type Options struct {
	// File is the log file path. Empty disables logging unless Debug is set.
	File string
	// Debug enables debug level. Without File it logs to stateDir/migmate.log.
	Debug bool
}

// New returns a logger for opts. With neither a file nor debug mode the logger discards everything.
func New(opts Options, stateDir string) (*zap.Logger, error) {
	path := opts.File
	if path == "" && opts.Debug {
		path = filepath.Join(stateDir, "migmate.log")
	}
	if path == "" {
		return zap.NewNop(), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
