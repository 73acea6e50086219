package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

// ConsoleLogger implements Logger for console output
type ConsoleLogger struct {
	mu               sync.Mutex
	writer           io.Writer
	level            LogLevel
	traceID          string
	colorEnabled     bool
	timestampEnabled bool
}

// ConsoleLoggerConfig contains configuration for console logger
type ConsoleLoggerConfig struct {
	Writer           io.Writer
	Level            LogLevel
	ColorEnabled     bool
	TimestampEnabled bool
}

// NewConsoleLogger creates a new console logger
func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	return &ConsoleLogger{
		writer:           config.Writer,
		level:            config.Level,
		colorEnabled:     config.ColorEnabled,
		timestampEnabled: config.TimestampEnabled,
	}
}

func (l *ConsoleLogger) log(level LogLevel, msg string, fields ...Field) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var sb strings.Builder
	if l.timestampEnabled {
		sb.WriteString(time.Now().UTC().Format(time.RFC3339))
		sb.WriteByte(' ')
	}
	sb.WriteString(l.colorize(level, level.String()))
	if l.traceID != "" {
		sb.WriteString(" [")
		sb.WriteString(l.traceID)
		sb.WriteByte(']')
	}
	sb.WriteByte(' ')
	sb.WriteString(msg)
	for _, field := range fields {
		fmt.Fprintf(&sb, " %s=%v", field.Key, field.Value)
	}
	sb.WriteByte('\n')

	_, _ = io.WriteString(l.writer, sb.String())
}

func (l *ConsoleLogger) colorize(level LogLevel, s string) string {
	if !l.colorEnabled {
		return s
	}
	switch level {
	case DEBUG:
		return colorGray + s + colorReset
	case INFO:
		return colorBlue + s + colorReset
	case WARN:
		return colorYellow + s + colorReset
	case ERROR:
		return colorRed + s + colorReset
	}
	return s
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }
func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields...) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields...) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields...) }

// WithTraceID returns a new logger with the trace ID set
func (l *ConsoleLogger) WithTraceID(traceID string) Logger {
	clone := &ConsoleLogger{
		writer:           l.writer,
		level:            l.level,
		traceID:          traceID,
		colorEnabled:     l.colorEnabled,
		timestampEnabled: l.timestampEnabled,
	}
	return clone
}
