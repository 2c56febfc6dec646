package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents log severity.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Field is a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand for creating a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds logger configuration. Rotation of the log file is
// handled by lumberjack.
type Config struct {
	Level      Level  // Minimum log level
	FilePath   string // Path to log file; empty disables file output
	MaxSizeMB  int    // Max size in megabytes before rotation
	MaxAge     int    // Max age of rotated files in days
	MaxBackups int    // Max number of rotated files to keep
	Console    bool   // Also write to stderr
}

// DefaultConfig returns default logger configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	logPath := ""
	if home != "" {
		logPath = filepath.Join(home, ".tasksync", "logs", "tasksync.log")
	}

	return Config{
		Level:      INFO,
		FilePath:   logPath,
		MaxSizeMB:  10,
		MaxAge:     7,
		MaxBackups: 5,
		Console:    false,
	}
}

// Logger writes leveled, fielded log lines.
type Logger struct {
	config  Config
	mu      sync.Mutex
	fields  []Field
	writers []io.Writer
	file    io.WriteCloser
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Init initializes the global logger.
func Init(config Config) error {
	var err error
	once.Do(func() {
		globalLogger, err = New(config)
	})
	return err
}

// New creates a new logger instance.
func New(config Config) (*Logger, error) {
	l := &Logger{config: config}

	if config.FilePath != "" {
		logDir := filepath.Dir(config.FilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSizeMB,
			MaxAge:     config.MaxAge,
			MaxBackups: config.MaxBackups,
		}
		l.file = file
		l.writers = append(l.writers, file)
	}

	if config.Console {
		l.writers = append(l.writers, os.Stderr)
	}

	return l, nil
}

// log writes a log entry.
func (l *Logger) log(level Level, msg string, fields []Field) {
	if level < l.config.Level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, file, line, ok := runtime.Caller(2)
	caller := "???"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	entry := fmt.Sprintf("[%s] %s %s: %s", timestamp, level.String(), caller, msg)

	allFields := append(l.fields, fields...)
	if len(allFields) > 0 {
		entry += " |"
		for _, f := range allFields {
			entry += fmt.Sprintf(" %s=%v", f.Key, f.Value)
		}
	}
	entry += "\n"

	for _, w := range l.writers {
		w.Write([]byte(entry))
	}
}

// WithFields creates a new logger with preset fields.
func (l *Logger) WithFields(fields ...Field) *Logger {
	return &Logger{
		config:  l.config,
		fields:  append(append([]Field{}, l.fields...), fields...),
		writers: l.writers,
		file:    l.file,
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields) }

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...Field) { l.log(INFO, msg, fields) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...Field) { l.log(WARN, msg, fields) }

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields) }

// Close closes the logger's file output.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Global logger functions

// Debug logs a debug message using the global logger.
func Debug(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Debug(msg, fields...)
	}
}

// Info logs an info message using the global logger.
func Info(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Info(msg, fields...)
	}
}

// Warn logs a warning message using the global logger.
func Warn(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Warn(msg, fields...)
	}
}

// Error logs an error message using the global logger.
func Error(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Error(msg, fields...)
	}
}

// WithFields creates a new logger with preset fields using the global logger.
func WithFields(fields ...Field) *Logger {
	if globalLogger != nil {
		return globalLogger.WithFields(fields...)
	}
	return nil
}

// Close closes the global logger.
func Close() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}
