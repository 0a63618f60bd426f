// Package logging provides the leveled logger used across detkit.
//
// Loggers are thin wrappers around the standard library log.Logger. Each
// message is prefixed with its level and the logger name:
//
//	2024/05/23 11:27:39 [WARN] scan: image file a.gif has unsupported extension
//
// Core packages never reach for a global logger. They accept a Logger in
// their options and fall back to Discard when none is given. The named
// registry (GetOrCreate) exists for the command-line front-end.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Level is a logging severity.
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
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" to a Level.
// Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is the sink for leveled messages.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// StdLogger writes leveled messages through a standard log.Logger.
type StdLogger struct {
	name  string
	level Level
	out   *log.Logger
}

// New creates a logger writing to w. Messages below level are dropped.
func New(name string, w io.Writer, level Level) *StdLogger {
	return &StdLogger{
		name:  name,
		level: level,
		out:   log.New(w, "", log.Ldate|log.Ltime),
	}
}

func (l *StdLogger) logf(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.name != "" {
		l.out.Printf("[%s] %s: %s", level, l.name, msg)
		return
	}
	l.out.Printf("[%s] %s", level, msg)
}

func (l *StdLogger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *StdLogger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *StdLogger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *StdLogger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

// Name returns the logger name.
func (l *StdLogger) Name() string { return l.name }

type discard struct{}

func (discard) Debugf(string, ...interface{}) {}
func (discard) Infof(string, ...interface{})  {}
func (discard) Warnf(string, ...interface{})  {}
func (discard) Errorf(string, ...interface{}) {}

// Discard drops every message.
var Discard Logger = discard{}

// OrDiscard returns l, or Discard when l is nil.
func OrDiscard(l Logger) Logger {
	if l == nil {
		return Discard
	}
	return l
}

// Registry hands out named loggers that share one output and level.
// A name is created once; later calls return the same logger.
type Registry struct {
	mu      sync.Mutex
	w       io.Writer
	level   Level
	loggers map[string]*StdLogger
}

// NewRegistry creates a registry writing to w.
func NewRegistry(w io.Writer, level Level) *Registry {
	return &Registry{
		w:       w,
		level:   level,
		loggers: make(map[string]*StdLogger),
	}
}

// GetOrCreate returns the logger registered under name, creating it if needed.
func (r *Registry) GetOrCreate(name string) *StdLogger {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loggers[name]; ok {
		return l
	}
	l := New(name, r.w, r.level)
	r.loggers[name] = l
	return l
}

// Names returns the names of all created loggers in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.loggers))
	for name := range r.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultMu       sync.Mutex
	defaultRegistry = NewRegistry(os.Stderr, LevelInfo)
)

// Init replaces the process-wide registry. Loggers created before Init keep
// their old output.
func Init(w io.Writer, level Level) {
	defaultMu.Lock()
	defaultRegistry = NewRegistry(w, level)
	defaultMu.Unlock()
}

// GetOrCreate returns a named logger from the process-wide registry.
func GetOrCreate(name string) *StdLogger {
	defaultMu.Lock()
	r := defaultRegistry
	defaultMu.Unlock()
	return r.GetOrCreate(name)
}

// Names lists the loggers created in the process-wide registry.
func Names() []string {
	defaultMu.Lock()
	r := defaultRegistry
	defaultMu.Unlock()
	return r.Names()
}

// OpenSink opens a log file for appending. path may name a .log or .txt file,
// or a directory, in which case log.txt inside it is used.
func OpenSink(path string) (*os.File, error) {
	target := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		target = filepath.Join(path, "log.txt")
	} else {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".log" && ext != ".txt" {
			return nil, fmt.Errorf("log file must be a directory or a .log/.txt file: %s", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
