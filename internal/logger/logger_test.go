package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, buf *bytes.Buffer) *Logger {
	t.Helper()
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{slog: slog.New(handler)}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "json to stdout",
			config:  Config{Level: "debug", Format: "json", Output: "stdout"},
			wantErr: false,
		},
		{
			name:    "text to stderr",
			config:  Config{Level: "info", Format: "text", Output: "stderr"},
			wantErr: false,
		},
		{
			name:    "json to file",
			config:  Config{Level: "warn", Format: "json", Output: filepath.Join(t.TempDir(), "app.log")},
			wantErr: false,
		},
		{
			name:    "invalid level",
			config:  Config{Level: "loud", Format: "json", Output: "stdout"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "debug", Format: "xml", Output: "stdout"},
			wantErr: true,
		},
		{
			name:    "unwritable output path",
			config:  Config{Level: "debug", Format: "json", Output: "/nonexistent/directory/file.log"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "unwritable output path" && os.Geteuid() == 0 {
				t.Skip("running as root: the unwritable path is creatable")
			}
			log, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && log == nil {
				t.Error("New() returned nil logger without error")
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(t, buf)

	log.Debug("debug msg", Field{Key: "k", Value: "v"})
	log.Info("info msg", Field{Key: "k", Value: "v"})
	log.Warn("warn msg")
	log.Error("error msg", errors.New("boom"), Field{Key: "k", Value: "v"})

	output := buf.String()
	for _, want := range []string{"debug msg", "info msg", "warn msg", "error msg", "boom"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestLogger_CtxVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(t, buf)
	ctx := context.Background()

	log.DebugCtx(ctx, "ctx debug")
	log.InfoCtx(ctx, "ctx info")
	log.WarnCtx(ctx, "ctx warn")
	log.ErrorCtx(ctx, "ctx error", errors.New("boom"))

	output := buf.String()
	for _, want := range []string{"ctx debug", "ctx info", "ctx warn", "ctx error"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(t, buf)

	log.With(
		Field{Key: "component", Value: "chain"},
		Field{Key: "run_id", Value: "abc"},
	).Info("message with bound fields")

	output := buf.String()
	if !strings.Contains(output, "component") || !strings.Contains(output, "run_id") {
		t.Errorf("Expected bound fields in output, got: %s", output)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true, wantWarn: true},
		{level: "info", wantDebug: false, wantInfo: true, wantWarn: true},
		{level: "warn", wantDebug: false, wantInfo: false, wantWarn: true},
		{level: "error", wantDebug: false, wantInfo: false, wantWarn: false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			level, ok := parseLevel(tt.level)
			if !ok {
				t.Fatalf("parseLevel(%q) failed", tt.level)
			}
			log := &Logger{slog: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))}

			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message", nil)

			output := buf.String()
			if got := strings.Contains(output, "debug message"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(output, "info message"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(output, "warn message"); got != tt.wantWarn {
				t.Errorf("warn logged = %v, want %v", got, tt.wantWarn)
			}
			if !strings.Contains(output, "error message") {
				t.Error("error message should be logged at every level")
			}
		})
	}
}

func TestLogger_JSONOutputIsValid(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(t, buf)

	log.Info("structured message", Field{Key: "key", Value: "value"})

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if result["msg"] != "structured message" {
		t.Errorf("Expected msg='structured message', got: %v", result["msg"])
	}
	if result["key"] != "value" {
		t.Errorf("Expected key='value', got: %v", result["key"])
	}
}
