package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the logging format
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config holds the logger configuration
type Config struct {
	Level     LogLevel  `yaml:"level" json:"level"`
	Format    LogFormat `yaml:"format" json:"format"`
	Output    string    `yaml:"output" json:"output"` // "stdout", "stderr", or file path
	AddSource bool      `yaml:"add_source" json:"add_source"`
}

// DefaultConfig returns a Config for a command line tool: warnings and
// errors only, text format, written to stderr so stdout stays clean for
// results.
func DefaultConfig() Config {
	return Config{
		Level:     LevelWarn,
		Format:    FormatText,
		Output:    "stderr",
		AddSource: false,
	}
}

// ParseLevel converts a level name into a LogLevel. Unknown names are an error.
func ParseLevel(s string) (LogLevel, error) {
	switch level := LogLevel(strings.ToLower(strings.TrimSpace(s))); level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return level, nil
	case "warning":
		return LevelWarn, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
	config Config
	writer io.Writer
}

// NewLogger builds a Logger from config. Timestamps in log records are
// rendered using RFC3339.
func NewLogger(config Config) (*Logger, error) {
	var writer io.Writer

	switch config.Output {
	case "stderr", "":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		if err := os.MkdirAll(filepath.Dir(config.Output), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = f
	}

	return newLogger(config, writer), nil
}

// NewWriterLogger builds a Logger that writes to w, ignoring config.Output.
func NewWriterLogger(config Config, w io.Writer) *Logger {
	return newLogger(config, w)
}

func newLogger(config Config, writer io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: config,
		writer: writer,
	}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
		config: l.config,
		writer: l.writer,
	}
}

// WithFields adds structured fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
		writer: l.writer,
	}
}

// Close closes the log file, if the logger owns one.
func (l *Logger) Close() error {
	if l.writer == os.Stdout || l.writer == os.Stderr {
		return nil
	}
	if closer, ok := l.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// MetricsLogger logs timings of individual operations at debug level.
type MetricsLogger struct {
	logger *Logger
}

// NewMetricsLogger returns a MetricsLogger scoped to the "metrics" component.
func NewMetricsLogger(logger *Logger) *MetricsLogger {
	return &MetricsLogger{
		logger: logger.WithComponent("metrics"),
	}
}

// LogTiming logs how long an operation took.
func (ml *MetricsLogger) LogTiming(name string, duration time.Duration, labels map[string]string) {
	args := []interface{}{
		"metric_name", name,
		"duration_us", duration.Microseconds(),
		"duration", duration.String(),
	}
	for k, v := range labels {
		args = append(args, "label_"+k, v)
	}

	ml.logger.Debug("timing metric", args...)
}

// PerformanceTracker times a single operation.
type PerformanceTracker struct {
	logger    *MetricsLogger
	startTime time.Time
	operation string
	labels    map[string]string
}

// StartTracking begins performance tracking for an operation
func (ml *MetricsLogger) StartTracking(operation string, labels map[string]string) *PerformanceTracker {
	return &PerformanceTracker{
		logger:    ml,
		startTime: time.Now(),
		operation: operation,
		labels:    labels,
	}
}

// Finish completes the performance tracking and logs the duration
func (pt *PerformanceTracker) Finish() time.Duration {
	duration := time.Since(pt.startTime)
	pt.logger.LogTiming(pt.operation, duration, pt.labels)
	return duration
}

// FinishWithError completes tracking and records whether the operation failed.
func (pt *PerformanceTracker) FinishWithError(err error) time.Duration {
	duration := time.Since(pt.startTime)

	labels := make(map[string]string, len(pt.labels)+2)
	for k, v := range pt.labels {
		labels[k] = v
	}

	if err != nil {
		labels["error"] = "true"
		labels["error_message"] = err.Error()
	} else {
		labels["error"] = "false"
	}

	pt.logger.LogTiming(pt.operation, duration, labels)
	return duration
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// SetGlobalLogger sets the logger used by the package-level helpers.
// Passing nil restores the default on next use.
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the package-level logger, creating one from
// DefaultConfig on first use.
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger == nil {
		globalLogger = newLogger(DefaultConfig(), os.Stderr)
	}
	return globalLogger
}

// Debug logs at debug level through the global logger.
func Debug(msg string, args ...interface{}) {
	GetGlobalLogger().Debug(msg, args...)
}

// WithComponent returns the global logger with a component field attached.
func WithComponent(component string) *Logger {
	return GetGlobalLogger().WithComponent(component)
}
