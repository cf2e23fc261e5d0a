package logger

import (
	"go.uber.org/zap"
)

// Log is the package logger. It does nothing until Initialize is called.
var Log *zap.Logger = zap.NewNop()

// Initialize builds a production logger with the given level and installs it as Log.
func Initialize(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = zl
	return nil
}
