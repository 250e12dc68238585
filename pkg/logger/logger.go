package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	global  *zap.Logger
	atomic  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	formats = map[string]struct{}{"json": {}, "console": {}}
)

func init() { // usable logger even before Init runs
	global = zap.NewNop()
}

// Init builds the global logger. Level is a zap level string ("debug",
// "info", "warn", "error"); format is "json" or "console". Unknown levels
// fall back to info, unknown formats are an error.
func Init(level, format string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	atomic.SetLevel(lvl)

	if format == "" {
		format = "json"
	}
	if _, ok := formats[format]; !ok {
		return fmt.Errorf("logger: unknown format %q", format)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = atomic
	cfg.Encoding = format
	if format == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	global = built
	return nil
}

// SetLevel adjusts the level of the running logger.
func SetLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("logger: unknown level %q", level)
	}
	atomic.SetLevel(lvl)
	return nil
}

// Logger returns the configured global logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// WithModule returns a child logger annotated with the owning module name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Sync flushes buffered entries. Safe to call on a nop logger.
func Sync() error {
	return Logger().Sync()
}

func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Logger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Logger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }
