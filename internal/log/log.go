package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Reporter is the out-of-band diagnostics channel used by the codec and the
// calendar generator. Implementations must not affect the caller's result.
type Reporter interface {
	Error(msg string, err error, kv ...any)
}

// Logger is a Reporter backed by a zap logger.
type Logger struct {
	s *zap.SugaredLogger
}

var (
	std      *Logger
	stdOnce  sync.Once
	minLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	stdOnce.Do(func() {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc),
			zapcore.Lock(os.Stderr),
			minLevel,
		)
		std = NewZap(zap.New(core))
	})
}

// NewZap wraps an existing zap logger.
func NewZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{s: z.Sugar()}
}

// Default returns the process-wide logger.
func Default() *Logger {
	initLogger()
	return std
}

// ParseLevel maps a config string onto a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelDebug, "debug":
		return LevelDebug
	case LevelError, "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	initLogger()
	switch l {
	case LevelDebug:
		minLevel.SetLevel(zapcore.DebugLevel)
	case LevelError:
		minLevel.SetLevel(zapcore.ErrorLevel)
	default:
		minLevel.SetLevel(zapcore.InfoLevel)
	}
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.s.Debugw(msg, kv...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.s.Infow(msg, kv...)
}

func (l *Logger) Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{zap.Error(err)}, kv...)
	l.s.Errorw(msg, extended...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() {
	_ = l.s.Sync()
}

func Debug(msg string, kv ...any) {
	Default().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	Default().Info(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	Default().Error(msg, err, kv...)
}
