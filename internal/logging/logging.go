// Package logging prints the "[category] message" console lines used across
// the pipeline. Debug lines are only written when the category was created
// with debug enabled.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Category names used as line prefixes.
const (
	CategoryMain     = "main"
	CategoryRecord   = "record"
	CategoryHotkey   = "hotkey"
	CategoryASR      = "asr"
	CategoryLLM      = "llm"
	CategoryDispatch = "dispatch"
	CategorySession  = "session"
	CategoryDesktop  = "desktop"
	CategoryBench    = "bench"
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stdout
)

// SetOutput redirects every logger. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

// Logger writes lines for a single category.
type Logger struct {
	category string
	debug    bool
}

// New returns a logger for category.
func New(category string, debug bool) *Logger {
	return &Logger{category: category, debug: debug}
}

// DebugEnabled reports whether Debugf lines are written.
func (l *Logger) DebugEnabled() bool {
	return l != nil && l.debug
}

func (l *Logger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.write("", format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.write("", format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.write("warning: ", format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.write("error: ", format, args...)
}

func (l *Logger) write(level, format string, args ...any) {
	if l == nil {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "[%s] %s%s\n", l.category, level, msg)
}
