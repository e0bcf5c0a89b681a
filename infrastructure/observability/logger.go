// Package observability builds the process-wide logger, metrics collector,
// and tracer provider.
package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON logger in production and a console logger
// elsewhere. An unknown level falls back to error and says so.
func NewLogger(environment, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, ok := ParseLevel(level)
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if !ok {
		warnInvalidLevel(logger, cfg.Level, level)
	}
	return logger, nil
}

// warnInvalidLevel emits the fallback warning with the level briefly lowered
// to warn, since the error fallback would otherwise filter it out.
func warnInvalidLevel(logger *zap.Logger, atom zap.AtomicLevel, level string) {
	current := atom.Level()
	atom.SetLevel(zapcore.WarnLevel)
	logger.Warn("Invalid LOG_LEVEL, falling back to error", zap.String("level", level))
	atom.SetLevel(current)
}

// ParseLevel maps a LOG_LEVEL value to a zap level. The second result is
// false when the value was not recognised.
func ParseLevel(level string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.ErrorLevel, false
	}
}
