// Package logger provides structured logging for platescan using zap.
//
// Logs always go to stderr so that reports written to stdout stay clean.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger with the field helpers used across platescan
type Logger struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

// Config holds logger configuration options
type Config struct {
	// Level is the minimum level to output (debug, info, warn, error)
	Level string

	// Format is "console" (human-readable) or "json"
	Format string

	// OutputPath additionally appends log entries to this file
	OutputPath string

	// EnableCaller adds the calling file and line to entries
	EnableCaller bool

	// EnableStacktrace adds stack traces to error-level entries
	EnableStacktrace bool
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "console"}
}

var (
	mu            sync.Mutex
	defaultLogger *Logger
)

// New creates a logger from cfg; a nil cfg means DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoder, err := newEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}

	sink, err := newSink(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	atom := zap.NewAtomicLevelAt(level)
	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	core := zapcore.NewCore(encoder, sink, atom)
	return &Logger{SugaredLogger: zap.New(core, opts...).Sugar(), level: atom}, nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	switch format {
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec), nil
	default:
		return nil, fmt.Errorf("invalid log format %q, must be console or json", format)
	}
}

func newSink(path string) (zapcore.WriteSyncer, error) {
	stderr := zapcore.Lock(os.Stderr)
	if path == "" {
		return stderr, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return zapcore.NewMultiWriteSyncer(stderr, zapcore.Lock(f)), nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

// Init replaces the process-wide logger returned by Get
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

// Get returns the process-wide logger, creating a default one on first use
func Get() *Logger {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger, _ = New(nil)
	}
	return defaultLogger
}

// ParseLevel converts a level name to a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
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

// SetLevel changes the minimum level of l and every logger derived from it
func (l *Logger) SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// Level returns the current minimum level name
func (l *Logger) Level() string {
	return l.level.Level().String()
}

// WithFields returns a child logger with key/value pairs attached
func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.With(fields...), level: l.level}
}

// Named returns a child logger for a component
func (l *Logger) Named(component string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(component), level: l.level}
}

// WithImage attaches the image path
func (l *Logger) WithImage(path string) *Logger {
	return l.WithFields("image", path)
}

// WithRunID attaches the batch run identifier
func (l *Logger) WithRunID(runID string) *Logger {
	return l.WithFields("run_id", runID)
}

// WithError attaches err
func (l *Logger) WithError(err error) *Logger {
	return l.WithFields("error", err)
}
