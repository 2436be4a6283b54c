// Package logger provides structured logging for formpilot using zap.
package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger with the fields formpilot attaches to
// pipeline runs
type Logger struct {
	*zap.SugaredLogger
	config *Config
}

// Config holds logger configuration options
type Config struct {
	// Level is the minimum log level to output (debug, info, warn, error)
	Level string

	// Format is "console" (human-readable) or "json"
	Format string

	// OutputPath additionally appends entries to this file. Stdout is
	// reserved for command output, so the console copy always goes to stderr.
	OutputPath string

	// EnableCaller adds caller information to log entries
	EnableCaller bool

	// EnableStacktrace adds stack traces to error-level logs
	EnableStacktrace bool
}

// Stage names used with WithStage
const (
	StageOCR       = "ocr"
	StageDetect    = "detect"
	StageRead      = "read"
	StageMap       = "map"
	StageTranslate = "translate"
	StageCommit    = "commit"
)

var (
	mu            sync.RWMutex
	defaultLogger *Logger
)

func defaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           "console",
		EnableStacktrace: true,
	}
}

// New creates a logger from cfg. A nil cfg logs info and above to stderr.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if cfg.OutputPath != "" {
		file, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.OutputPath, err)
		}
		sinks = append(sinks, zapcore.AddSync(file))
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.NewMultiWriteSyncer(sinks...), level)

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return &Logger{
		SugaredLogger: zap.New(core, opts...).Sugar(),
		config:        cfg,
	}, nil
}

func newEncoder(format string) zapcore.Encoder {
	if strings.EqualFold(format, "json") {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeDuration = zapcore.MillisDurationEncoder
		return zapcore.NewJSONEncoder(encCfg)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	encCfg.EncodeDuration = zapcore.StringDurationEncoder
	return zapcore.NewConsoleEncoder(encCfg)
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{
		SugaredLogger: zap.NewNop().Sugar(),
		config:        defaultConfig(),
	}
}

// Init replaces the global logger
func Init(cfg *Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return nil
}

// Get returns the global logger, creating a default one on first use
func Get() *Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger, _ = New(nil)
	}
	return defaultLogger
}

// Sync flushes the global logger
func Sync() error {
	return Get().Sync()
}

// Level returns the configured minimum level
func (l *Logger) Level() string {
	return l.config.Level
}

// WithFields returns a logger with key/value pairs attached
func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.With(fields...),
		config:        l.config,
	}
}

// WithError attaches err
func (l *Logger) WithError(err error) *Logger {
	return l.WithFields("error", err)
}

// WithOperation tags entries with the pipeline operation (analyze, fill)
func (l *Logger) WithOperation(operation string) *Logger {
	return l.WithFields("operation", operation)
}

// WithProcessingID tags entries with the ID reported back to the caller
func (l *Logger) WithProcessingID(id string) *Logger {
	return l.WithFields("processing_id", id)
}

// WithStage tags entries with a pipeline stage such as StageOCR
func (l *Logger) WithStage(stage string) *Logger {
	return l.WithFields("stage", stage)
}

// WithField tags entries with a PDF form field name
func (l *Logger) WithField(name string) *Logger {
	return l.WithFields("field", name)
}

// WithDocumentID tags entries with a document name or ID
func (l *Logger) WithDocumentID(docID string) *Logger {
	return l.WithFields("document_id", docID)
}

// WithRequestID tags entries with an HTTP request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.WithFields("request_id", requestID)
}

// WithPage tags entries with a 0-based page number
func (l *Logger) WithPage(page int) *Logger {
	return l.WithFields("page", page)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying l
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored by NewContext, or fallback when
// there is none. A nil fallback means the global logger.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(contextKey{}).(*Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return Get()
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", level)
	}
}
