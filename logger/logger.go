package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar atomic.Pointer[zap.SugaredLogger]
)

func init() {
	sugar.Store(build())
}

func build() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLevel accepts debug, info, warn or error. Anything else resets to info.
func SetLevel(lvl string) {
	parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(lvl)))
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	level.SetLevel(parsed)
}

func IsDebugEnabled() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// Replace swaps the underlying logger. Tests use it with zap.NewNop or an observer core.
func Replace(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	sugar.Store(l.WithOptions(zap.AddCallerSkip(1)).Sugar())
}

func L() *zap.SugaredLogger {
	return sugar.Load()
}

func Sync() {
	_ = sugar.Load().Sync()
}

func Debugf(format string, v ...any) {
	if !IsDebugEnabled() {
		return
	}
	sugar.Load().Debugf(format, v...)
}

func Infof(format string, v ...any) {
	sugar.Load().Infof(format, v...)
}

func Warnf(format string, v ...any) {
	sugar.Load().Warnf(format, v...)
}

func Errorf(format string, v ...any) {
	sugar.Load().Errorf(format, v...)
}

func Infow(msg string, keysAndValues ...any) {
	sugar.Load().Infow(msg, keysAndValues...)
}

func Warnw(msg string, keysAndValues ...any) {
	sugar.Load().Warnw(msg, keysAndValues...)
}

func Errorw(msg string, keysAndValues ...any) {
	sugar.Load().Errorw(msg, keysAndValues...)
}
