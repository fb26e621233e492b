// Package log provides a global logger with configurable logging level and per-component tags.
// Components create a tagged Logger once (log.New("crypto")) and log through it; the level and
// output are shared process-wide.

package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Logs anomalies that are not expected to occur during normal use.
	LevelWarning              // Logs anomalies that are expected to occur occasionally during normal use.
	LevelInfo                 // Logs major events (connections, pairing).
	LevelDebug                // Logs detailed IO
)

var (
	globalLogLevel Level = LevelInfo
	output         io.Writer = os.Stderr
	logMutex       sync.Mutex
)

var labels = map[Level]string{
	LevelDebug:   "[debug]",
	LevelInfo:    "[info ]",
	LevelWarning: "[warn ]",
	LevelError:   "[error]",
}

// ParseLevel maps a level name ("none", "error", "warn", "info", "debug") to a Level.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "none":
		return LevelNone, nil
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelNone, fmt.Errorf("unknown log level '%s'", name)
}

func SetLevel(level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	globalLogLevel = level
}

// SetOutput redirects log lines to w. A nil w restores os.Stderr.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
}

func emit(level Level, tag string, format string, a ...interface{}) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if level > globalLogLevel {
		return
	}
	msg := fmt.Sprintf("%s %s ", time.Now().Format(time.RFC3339), labels[level])
	if tag != "" {
		msg += tag + ": "
	}
	msg += fmt.Sprintf(format, a...)
	fmt.Fprintln(output, msg)
}

// Logger prefixes every line with a component tag.
type Logger struct {
	tag string
}

// New returns a Logger for the named component.
func New(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) Debug(format string, a ...interface{}) {
	emit(LevelDebug, l.tag, format, a...)
}
func (l *Logger) Info(format string, a ...interface{}) {
	emit(LevelInfo, l.tag, format, a...)
}
func (l *Logger) Warning(format string, a ...interface{}) {
	emit(LevelWarning, l.tag, format, a...)
}
func (l *Logger) Error(format string, a ...interface{}) {
	emit(LevelError, l.tag, format, a...)
}

func Debug(format string, a ...interface{}) {
	emit(LevelDebug, "", format, a...)
}
func Info(format string, a ...interface{}) {
	emit(LevelInfo, "", format, a...)
}
func Warning(format string, a ...interface{}) {
	emit(LevelWarning, "", format, a...)
}
func Error(format string, a ...interface{}) {
	emit(LevelError, "", format, a...)
}
