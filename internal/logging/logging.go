// Package logging provides the process-wide structured logger.
//
// Every component threads a *zap.SugaredLogger through its constructor
// instead of reaching for the stdlib log package; call sites keep the
// bracketed-component-tag convention ("[PhaseClock] room=%s ...") as the
// log message itself, with structured fields carrying the actual values.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. dev=true gets human-readable console
// output with debug level; dev=false gets JSON output at info level,
// suitable for production log aggregation.
func New(dev bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Named returns a child logger tagged with the owning component, e.g.
// logging.Named(base, "PhaseClock").
func Named(base *zap.SugaredLogger, component string) *zap.SugaredLogger {
	return base.Named(component)
}
