package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger set by Init
var Logger *zap.Logger

var (
	fallbackOnce sync.Once
	fallback     *zap.Logger
)

// Init builds the global logger. Production gets JSON at info, anything else the colored
// development encoder at debug; a parseable level overrides either default.
func Init(env, level string) error {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			config.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := config.Build(zap.Fields(zap.String("service", "agent-neo"), zap.String("env", env)))
	if err != nil {
		return err
	}
	Logger = built

	return nil
}

// Sync flushes any buffered log entries
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Get returns the global logger, or a shared development logger before Init.
func Get() *zap.Logger {
	if Logger != nil {
		return Logger
	}
	fallbackOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			l = zap.NewNop()
		}
		fallback = l
	})
	return fallback
}

// Named returns the global logger scoped to one component.
func Named(component string) *zap.Logger {
	return Get().Named(component)
}
