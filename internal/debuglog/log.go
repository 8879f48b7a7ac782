package debuglog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff // Disables all logging
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo // Default to INFO
	}
}

// Options controls where log output goes and how it rotates.
type Options struct {
	Level      LogLevel
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu           sync.RWMutex
	currentLevel = LevelOff
	logger       = zerolog.Nop()
	sink         *lumberjack.Logger
)

// Setup configures the logging system with the specified level and optional file path.
// If filePath is empty, defaults to ~/.treehole/treehole.log.
func Setup(level LogLevel, filePath ...string) error {
	opts := Options{Level: level}
	if len(filePath) > 0 {
		opts.File = filePath[0]
	}
	return SetupWithOptions(opts)
}

// SetupWithOptions replaces the active logger. The file is rotated by size.
func SetupWithOptions(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	currentLevel = opts.Level

	if opts.Level == LevelOff {
		return nil
	}

	logPath := opts.File
	if logPath == "" {
		home, _ := os.UserHomeDir()
		logPath = filepath.Join(home, ".treehole", "treehole.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	sink = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}

	// Touch the file so failures surface here rather than on the first write.
	if _, err := sink.Write(nil); err != nil {
		sink = nil
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	out := zerolog.ConsoleWriter{
		Out:        sink,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05.000",
	}
	logger = zerolog.New(out).Level(opts.Level.zerolog()).With().Timestamp().Str("app", "treehole").Logger()
	return nil
}

// SetLevel changes the current logging level
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	logger = logger.Level(level.zerolog())
}

// GetLevel returns the current logging level
func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// Close closes the log file if open
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	logger = zerolog.Nop()
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}

func event(level LogLevel, fields map[string]interface{}, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if level < currentLevel || sink == nil {
		return
	}

	var e *zerolog.Event
	switch level {
	case LevelDebug:
		e = logger.Debug()
	case LevelInfo:
		e = logger.Info()
	case LevelWarn:
		e = logger.Warn()
	default:
		e = logger.Error()
	}
	if e == nil {
		return
	}
	if len(fields) > 0 {
		e = e.Fields(fields)
	}
	e.Msgf(format, args...)
}

func Debugf(format string, args ...any) {
	event(LevelDebug, nil, format, args...)
}

func Infof(format string, args ...any) {
	event(LevelInfo, nil, format, args...)
}

func Warnf(format string, args ...any) {
	event(LevelWarn, nil, format, args...)
}

func Errorf(format string, args ...any) {
	event(LevelError, nil, format, args...)
}

// FieldLogger attaches key/value pairs to every message.
type FieldLogger struct {
	fields map[string]interface{}
}

// WithFields returns a new logger with the specified fields
func WithFields(fields map[string]interface{}) *FieldLogger {
	return &FieldLogger{fields: fields}
}

// With returns a copy carrying one more field.
func (fl *FieldLogger) With(key string, value interface{}) *FieldLogger {
	fields := make(map[string]interface{}, len(fl.fields)+1)
	for k, v := range fl.fields {
		fields[k] = v
	}
	fields[key] = value
	return &FieldLogger{fields: fields}
}

func (fl *FieldLogger) Debugf(format string, args ...any) {
	event(LevelDebug, fl.fields, format, args...)
}

func (fl *FieldLogger) Infof(format string, args ...any) {
	event(LevelInfo, fl.fields, format, args...)
}

func (fl *FieldLogger) Warnf(format string, args ...any) {
	event(LevelWarn, fl.fields, format, args...)
}

func (fl *FieldLogger) Errorf(format string, args ...any) {
	event(LevelError, fl.fields, format, args...)
}

// Since is shorthand for a duration field rounded to milliseconds.
func Since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
