// =============================================================================
// ICD Codebook Mapper - Logging
// =============================================================================
//
// Every component receives a Logger through its constructor. The interface
// keeps the printf-style shape used throughout the pipeline; the only
// implementation is backed by go.uber.org/zap.
//
// =============================================================================

package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging contract used by the pipeline, the parser and the
// resolver.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// With returns a child logger that adds the key/value pairs to every
	// entry. The parent is not mutated.
	With(keysAndValues ...interface{}) Logger

	// Sync flushes buffered entries.
	Sync() error
}

// Config carries the parameters needed to build a Logger.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// Format is "console" or "json". Empty means console.
	Format string

	// OutputPaths defaults to stderr so stdout stays free for summaries.
	OutputPaths []string
}

// sugarLogger adapts a *zap.SugaredLogger to Logger.
type sugarLogger struct {
	s *zap.SugaredLogger
}

// New builds a zap-backed Logger from cfg.
//
// RETURNS:
//   - Logger: ready to use
//   - error: unknown level or format, or an unopenable output path
func New(cfg Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q (expected console or json)", cfg.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}

	z, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &sugarLogger{s: z.Sugar()}, nil
}

// NewFromZap wraps an existing zap logger. Used by tests that capture output.
func NewFromZap(z *zap.Logger) Logger {
	return &sugarLogger{s: z.Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &sugarLogger{s: zap.NewNop().Sugar()}
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

func (l *sugarLogger) Debug(msg string, args ...interface{}) { l.s.Debugf(msg, args...) }
func (l *sugarLogger) Info(msg string, args ...interface{})  { l.s.Infof(msg, args...) }
func (l *sugarLogger) Warn(msg string, args ...interface{})  { l.s.Warnf(msg, args...) }
func (l *sugarLogger) Error(msg string, args ...interface{}) { l.s.Errorf(msg, args...) }

func (l *sugarLogger) With(keysAndValues ...interface{}) Logger {
	return &sugarLogger{s: l.s.With(keysAndValues...)}
}

func (l *sugarLogger) Sync() error {
	return l.s.Sync()
}
