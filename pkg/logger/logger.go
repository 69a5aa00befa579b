package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yichen/compass/backend/pkg/config"
)

// Logger is a structured logger wrapper around zerolog
// ⭐ SSOT: 所有日志都通过这个包输出
type Logger struct {
	zlog zerolog.Logger
}

// New creates a new Logger instance from config
// ⭐ SSOT: zerolog 实例只在这里创建
func New(cfg *config.Config) *Logger {
	// Configure output format
	var output io.Writer
	if cfg.LogFormat == "console" || cfg.LogFormat == "pretty" {
		// Human-readable console output
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	} else {
		// JSON output (default)
		output = os.Stdout
	}

	// Set log level
	level := parseLogLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)

	// 时长字段以毫秒输出, 方便日志平台聚合
	zerolog.DurationFieldUnit = time.Millisecond

	// Create logger
	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "compass").
		Str("env", cfg.Env).
		Logger()

	return &Logger{zlog: zlog}
}

// parseLogLevel converts string log level to zerolog.Level
func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.zlog.Debug().Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.zlog.Info().Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.zlog.Warn().Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.zlog.Error().Msg(msg)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string) {
	l.zlog.Fatal().Msg(msg)
}

// WithField returns a new logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	newLogger := l.zlog.With().Interface(key, value).Logger()
	return &Logger{zlog: newLogger}
}

// WithFields returns a new logger with multiple fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// WithError returns a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	newLogger := l.zlog.With().Err(err).Logger()
	return &Logger{zlog: newLogger}
}

// Domain field helpers. 字段名统一在这里, 各处不再手写 key

// WithStrategy tags entries with the strategy being processed
func (l *Logger) WithStrategy(id int64) *Logger {
	return &Logger{zlog: l.zlog.With().Int64("strategy_id", id).Logger()}
}

// WithInstrument tags entries with an instrument code
func (l *Logger) WithInstrument(code string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("code", code).Logger()}
}

// WithJob tags entries with a scheduled job name
func (l *Logger) WithJob(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("job", name).Logger()}
}

// WithUser tags entries with the acting user
func (l *Logger) WithUser(id int64) *Logger {
	return &Logger{zlog: l.zlog.With().Int64("user_id", id).Logger()}
}

// Zerolog returns the underlying zerolog.Logger
// 其他包需要 zerolog 原生能力时使用
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}
