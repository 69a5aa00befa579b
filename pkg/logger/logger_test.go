package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yichen/compass/backend/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantLevel zerolog.Level
	}{
		{
			name: "debug level",
			cfg: &config.Config{
				Env:       "development",
				LogLevel:  "debug",
				LogFormat: "json",
			},
			wantLevel: zerolog.DebugLevel,
		},
		{
			name: "info level",
			cfg: &config.Config{
				Env:       "production",
				LogLevel:  "info",
				LogFormat: "json",
			},
			wantLevel: zerolog.InfoLevel,
		},
		{
			name: "warn level",
			cfg: &config.Config{
				Env:       "staging",
				LogLevel:  "warn",
				LogFormat: "json",
			},
			wantLevel: zerolog.WarnLevel,
		},
		{
			name: "error level",
			cfg: &config.Config{
				Env:       "production",
				LogLevel:  "error",
				LogFormat: "json",
			},
			wantLevel: zerolog.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.cfg)
			if logger == nil {
				t.Fatal("Expected logger to be created")
			}

			// Verify global level is set
			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("Expected global level %v, got %v", tt.wantLevel, zerolog.GlobalLevel())
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	// Capture log output
	var buf bytes.Buffer

	// Set global level to debug to capture all logs
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	// Create logger with custom output
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{
			name:      "debug",
			logFunc:   func() { logger.Debug("debug message") },
			wantMsg:   "debug message",
			wantLevel: "debug",
		},
		{
			name:      "info",
			logFunc:   func() { logger.Info("info message") },
			wantMsg:   "info message",
			wantLevel: "info",
		},
		{
			name:      "warn",
			logFunc:   func() { logger.Warn("warn message") },
			wantMsg:   "warn message",
			wantLevel: "warn",
		},
		{
			name:      "error",
			logFunc:   func() { logger.Error("error message") },
			wantMsg:   "error message",
			wantLevel: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse log output: %v", err)
			}

			if entry["message"] != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, entry["message"])
			}

			if entry["level"] != tt.wantLevel {
				t.Errorf("Expected level %q, got %q", tt.wantLevel, entry["level"])
			}
		})
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	logger.WithField("strategy_id", 42).Info("with field")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}

	if entry["strategy_id"] != float64(42) {
		t.Errorf("Expected strategy_id 42, got %v", entry["strategy_id"])
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	logger.WithFields(map[string]interface{}{
		"code":   "510300.SH",
		"weight": 12.5,
	}).Info("with fields")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}

	if entry["code"] != "510300.SH" {
		t.Errorf("Expected code 510300.SH, got %v", entry["code"])
	}

	if entry["weight"] != 12.5 {
		t.Errorf("Expected weight 12.5, got %v", entry["weight"])
	}
}

func TestDomainFieldHelpers(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	logger.WithUser(9).WithStrategy(42).WithInstrument("510300").WithJob("rebacktest").Info("domain fields")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}

	if entry["user_id"] != float64(9) {
		t.Errorf("Expected user_id 9, got %v", entry["user_id"])
	}
	if entry["strategy_id"] != float64(42) {
		t.Errorf("Expected strategy_id 42, got %v", entry["strategy_id"])
	}
	if entry["code"] != "510300" {
		t.Errorf("Expected code 510300, got %v", entry["code"])
	}
	if entry["job"] != "rebacktest" {
		t.Errorf("Expected job rebacktest, got %v", entry["job"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	logger.WithError(errors.New("boom")).Error("with error")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}

	if entry["error"] != "boom" {
		t.Errorf("Expected error boom, got %v", entry["error"])
	}
}
