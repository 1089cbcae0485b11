package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. Logs go to worklens.log under the data
// directory as JSON; the file keeps working when the terminal is occupied by
// the timer UI.
func New(dataDir string, debug bool) (*zap.Logger, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{filepath.Join(dataDir, "worklens.log")}
	cfg.ErrorOutputPaths = cfg.OutputPaths
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
