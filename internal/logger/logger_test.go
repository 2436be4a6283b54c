package logger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// newObserved returns a logger whose entries can be inspected
func newObserved(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{SugaredLogger: zap.New(core).Sugar(), config: defaultConfig()}, logs
}

func TestNew_Defaults(t *testing.T) {
	l, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if l.Level() != "info" {
		t.Errorf("Level() = %q, want info", l.Level())
	}
	if l.config.Format != "console" {
		t.Errorf("format = %q, want console", l.config.Format)
	}
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{" error ", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(&Config{Level: tt.level, Format: "console"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			core := l.Desugar().Core()
			if !core.Enabled(tt.enabled) {
				t.Errorf("level %s should be enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && core.Enabled(tt.enabled-1) {
				t.Errorf("level %s should be disabled", tt.enabled-1)
			}
		})
	}
}

func TestNew_JSONFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formpilot.log")

	l, err := New(&Config{Level: "debug", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.WithProcessingID("p-1").WithStage(StageCommit).WithField("Vorname").Info("Committed form values")
	l.Debug("debug entry")
	_ = l.Sync()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q", scanner.Text())
		}
		entries = append(entries, entry)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	first := entries[0]
	want := map[string]string{
		"msg":           "Committed form values",
		"processing_id": "p-1",
		"stage":         "commit",
		"field":         "Vorname",
		"level":         "info",
	}
	for k, v := range want {
		if first[k] != v {
			t.Errorf("entry[%q] = %v, want %q", k, first[k], v)
		}
	}
}

func TestNew_FileOutputAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formpilot.log")
	if err := os.WriteFile(path, []byte("existing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := New(&Config{Level: "info", Format: "console", OutputPath: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("appended")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "existing\n") || !strings.Contains(string(data), "appended") {
		t.Errorf("log file = %q", data)
	}
}

func TestNew_InvalidLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "formpilot.log")
	if _, err := New(&Config{Level: "info", OutputPath: path}); err == nil {
		t.Fatal("expected error for unwritable log path")
	}
}

func TestInitAndGet(t *testing.T) {
	mu.Lock()
	saved := defaultLogger
	defaultLogger = nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		defaultLogger = saved
		mu.Unlock()
	})

	if Get() == nil {
		t.Fatal("Get() returned nil before Init")
	}

	if err := Init(&Config{Level: "debug", Format: "json"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if Get().Level() != "debug" {
		t.Errorf("Level() = %q after Init, want debug", Get().Level())
	}

	if err := Init(&Config{Level: "loud"}); err == nil {
		t.Error("Init() accepted an invalid level")
	}
	if Get().Level() != "debug" {
		t.Error("failed Init replaced the global logger")
	}
}

func TestFieldHelpers(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)
	boom := errors.New("boom")

	tests := []struct {
		name string
		log  *Logger
		key  string
		want any
	}{
		{"operation", l.WithOperation("fill"), "operation", "fill"},
		{"processing id", l.WithProcessingID("abc"), "processing_id", "abc"},
		{"stage", l.WithStage(StageOCR), "stage", "ocr"},
		{"field", l.WithField("Geburtsdatum"), "field", "Geburtsdatum"},
		{"document", l.WithDocumentID("lease.pdf"), "document_id", "lease.pdf"},
		{"request", l.WithRequestID("req-1"), "request_id", "req-1"},
		{"page", l.WithPage(3), "page", int64(3)},
		{"error", l.WithError(boom), "error", "boom"},
		{"fields", l.WithFields("written", 4), "written", int64(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.log.Info(tt.name)

			entries := logs.FilterMessage(tt.name).All()
			if len(entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(entries))
			}
			got, ok := entries[0].ContextMap()[tt.key]
			if !ok {
				t.Fatalf("entry missing %q: %v", tt.key, entries[0].ContextMap())
			}
			if err, isErr := got.(error); isErr {
				got = err.Error()
			}
			if got != tt.want {
				t.Errorf("%s = %v (%T), want %v (%T)", tt.key, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestWithFields_DoesNotMutateParent(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)

	child := l.WithProcessingID("child")
	l.Info("parent")
	child.Info("child")

	if _, ok := logs.FilterMessage("parent").All()[0].ContextMap()["processing_id"]; ok {
		t.Error("parent logger picked up child field")
	}
	if logs.FilterField(zap.String("processing_id", "child")).Len() != 1 {
		t.Error("child logger lost its field")
	}
}

func TestContext(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)
	fallback, fallbackLogs := newObserved(zapcore.InfoLevel)

	ctx := NewContext(context.Background(), l.WithRequestID("req-9"))
	FromContext(ctx, fallback).Info("from context")

	if logs.FilterField(zap.String("request_id", "req-9")).Len() != 1 {
		t.Error("context logger was not used")
	}
	if fallbackLogs.Len() != 0 {
		t.Error("fallback used although the context carries a logger")
	}

	FromContext(context.Background(), fallback).Info("no logger")
	if fallbackLogs.Len() != 1 {
		t.Error("fallback not used for a bare context")
	}

	if FromContext(context.Background(), nil) == nil {
		t.Error("FromContext returned nil without fallback")
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.WithStage(StageMap).Error("discarded")
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}
