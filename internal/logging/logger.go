// Package logging provides the ambient logging style used across netwatch:
// a plain stdlib *log.Logger with colorized level prefixes, the way the
// teacher package colors TCP conversation output in
// encoder/tcpConnection.go (github.com/mgutz/ansi).
package logging

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/mgutz/ansi"
)

// Level is a coarse log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l Level) color() string {
	switch l {
	case LevelDebug:
		return ansi.Blue
	case LevelWarn, LevelError:
		return ansi.Red
	default:
		return ""
	}
}

// Logger wraps a *log.Logger with a minimum level and ansi-colored
// level prefixes.
type Logger struct {
	mu     sync.Mutex
	out    *log.Logger
	min    Level
	colors bool
}

// New creates a Logger writing to w at or above min severity.
func New(w io.Writer, min Level) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags), min: min, colors: true}
}

// Default is the package-level logger used when callers don't wire their
// own, writing to stderr at LevelInfo.
var Default = New(os.Stderr, LevelInfo)

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if level < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := "[" + level.String() + "] "
	if l.colors {
		prefix = level.color() + prefix + ansi.Reset
	}
	l.out.Printf(prefix+format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

// SetColors toggles ansi coloring, useful when logs are redirected to a
// file rather than a terminal.
func (l *Logger) SetColors(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colors = enabled
}

// Dump logs a verbose structural dump of v at Debug level, the way
// encoder/tcpConnection.go calls spew.Dump(packet.Metadata().CaptureInfo)
// when diagnosing a conversation. A no-op below LevelDebug so the
// (comparatively expensive) reflection-based formatting is skipped
// entirely in production.
func (l *Logger) Dump(label string, v interface{}) {
	if l.min > LevelDebug {
		return
	}
	l.Debugf("%s:\n%s", label, spew.Sdump(v))
}
