package services

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogField represents a structured log field
type LogField struct {
	Key   string
	Value interface{}
}

// String creates a string log field
func String(key, value string) LogField {
	return LogField{Key: key, Value: value}
}

// Int creates an integer log field
func Int(key string, value int) LogField {
	return LogField{Key: key, Value: value}
}

// Bool creates a boolean log field
func Bool(key string, value bool) LogField {
	return LogField{Key: key, Value: value}
}

// Duration creates a duration log field
func Duration(key string, value time.Duration) LogField {
	return LogField{Key: key, Value: value.String()}
}

// Err creates an error log field
func Err(err error) LogField {
	if err == nil {
		return LogField{Key: "error", Value: nil}
	}
	return LogField{Key: "error", Value: err.Error()}
}

// Logger interface for structured logging
type Logger interface {
	Debug(msg string, fields ...LogField)
	Info(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	Error(msg string, err error, fields ...LogField)
	With(fields ...LogField) Logger
}

// logEntry is the serialized form of one log line
type logEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// StructuredLogger implements Logger with JSON line output
type StructuredLogger struct {
	level      LogLevel
	output     io.Writer
	mu         *sync.Mutex
	baseFields map[string]interface{}
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(level LogLevel, output io.Writer) *StructuredLogger {
	if output == nil {
		output = os.Stdout
	}
	return &StructuredLogger{
		level:      level,
		output:     output,
		mu:         &sync.Mutex{},
		baseFields: make(map[string]interface{}),
	}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger() *StructuredLogger {
	return NewStructuredLogger(LogLevelInfo, os.Stdout)
}

// ParseLogLevel converts a string to a LogLevel, defaulting to info
func ParseLogLevel(s string) LogLevel {
	switch LogLevel(s) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return LogLevel(s)
	default:
		return LogLevelInfo
	}
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(msg string, fields ...LogField) {
	if l.shouldLog(LogLevelDebug) {
		l.log(LogLevelDebug, msg, nil, fields...)
	}
}

// Info logs an info message
func (l *StructuredLogger) Info(msg string, fields ...LogField) {
	if l.shouldLog(LogLevelInfo) {
		l.log(LogLevelInfo, msg, nil, fields...)
	}
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(msg string, fields ...LogField) {
	if l.shouldLog(LogLevelWarn) {
		l.log(LogLevelWarn, msg, nil, fields...)
	}
}

// Error logs an error message
func (l *StructuredLogger) Error(msg string, err error, fields ...LogField) {
	if l.shouldLog(LogLevelError) {
		l.log(LogLevelError, msg, err, fields...)
	}
}

// With creates a new logger carrying additional base fields
func (l *StructuredLogger) With(fields ...LogField) Logger {
	base := make(map[string]interface{}, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		base[k] = v
	}
	for _, f := range fields {
		base[f.Key] = f.Value
	}
	return &StructuredLogger{
		level:      l.level,
		output:     l.output,
		mu:         l.mu,
		baseFields: base,
	}
}

func (l *StructuredLogger) shouldLog(level LogLevel) bool {
	order := map[LogLevel]int{
		LogLevelDebug: 0,
		LogLevelInfo:  1,
		LogLevelWarn:  2,
		LogLevelError: 3,
	}
	return order[level] >= order[l.level]
}

func (l *StructuredLogger) log(level LogLevel, msg string, err error, fields ...LogField) {
	entry := logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
	}

	if len(l.baseFields) > 0 || len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(l.baseFields)+len(fields))
		for k, v := range l.baseFields {
			entry.Fields[k] = v
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		data = []byte(fmt.Sprintf(`{"level":"error","message":"log marshal failed: %v"}`, marshalErr))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(append(data, '\n'))
}
