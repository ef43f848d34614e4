package logx

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// Fields is a map of structured log fields
type Fields map[string]interface{}

// Logger writes leveled, optionally structured log lines
type Logger struct {
	mu       sync.Mutex
	level    Level
	json     bool
	writer   io.Writer
	exitFunc func(int)
}

// NewLogger creates a logger writing to stdout. Level and format come from
// the LOG_LEVEL and LOG_FORMAT environment variables ("json" or "console").
func NewLogger() *Logger {
	return &Logger{
		level:    ParseLevel(os.Getenv("LOG_LEVEL")),
		json:     os.Getenv("LOG_FORMAT") == "json",
		writer:   os.Stdout,
		exitFunc: os.Exit,
	}
}

// SetLevel sets the minimum level emitted
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// WithField creates an entry with a single field
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return (&Entry{logger: l, fields: make(Fields)}).WithField(key, value)
}

// WithFields creates an entry with the given fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return (&Entry{logger: l, fields: make(Fields)}).WithFields(fields)
}

// WithError creates an entry carrying an error field
func (l *Logger) WithError(err error) *Entry {
	return (&Entry{logger: l, fields: make(Fields)}).WithError(err)
}

func (l *Logger) log(level Level, msg string, fields Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.level.Enabled(level) {
		return
	}

	now := time.Now()
	var line []byte
	if l.json {
		payload := map[string]interface{}{
			"time":    now.Format(time.RFC3339),
			"level":   level.String(),
			"message": msg,
		}
		for k, v := range fields {
			payload[k] = v
		}
		line, _ = json.Marshal(payload)
		line = append(line, '\n')
	} else {
		line = []byte(fmt.Sprintf("%s [%s] %s%s\n",
			now.Format("2006-01-02 15:04:05"), level.String(), msg, formatFields(fields)))
	}

	if _, err := l.writer.Write(line); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing log: %v\n", err)
	}
}

func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := " |"
	for _, k := range keys {
		out += fmt.Sprintf(" %s=%v", k, fields[k])
	}
	return out
}

// Entry accumulates fields before emitting a log line
type Entry struct {
	logger *Logger
	fields Fields
}

// WithField adds a field to the entry (chainable)
func (e *Entry) WithField(key string, value interface{}) *Entry {
	e.fields[key] = value
	return e
}

// WithFields adds multiple fields to the entry (chainable)
func (e *Entry) WithFields(fields Fields) *Entry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithError adds an error field (chainable)
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.fields["error"] = err.Error()
	}
	return e
}

func (e *Entry) Debug(msg string) { e.logger.log(LevelDebug, msg, e.fields) }
func (e *Entry) Info(msg string)  { e.logger.log(LevelInfo, msg, e.fields) }
func (e *Entry) Warn(msg string)  { e.logger.log(LevelWarn, msg, e.fields) }
func (e *Entry) Error(msg string) { e.logger.log(LevelError, msg, e.fields) }

func (e *Entry) Debugf(format string, args ...interface{}) {
	e.logger.log(LevelDebug, fmt.Sprintf(format, args...), e.fields)
}

func (e *Entry) Infof(format string, args ...interface{}) {
	e.logger.log(LevelInfo, fmt.Sprintf(format, args...), e.fields)
}

func (e *Entry) Warnf(format string, args ...interface{}) {
	e.logger.log(LevelWarn, fmt.Sprintf(format, args...), e.fields)
}

func (e *Entry) Errorf(format string, args ...interface{}) {
	e.logger.log(LevelError, fmt.Sprintf(format, args...), e.fields)
}
