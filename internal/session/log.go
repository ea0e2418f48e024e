package session

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Log appends JSONL event records to the session folder.
type Log struct {
	mu        sync.Mutex
	file      *os.File
	sessionID string
}

type logRecord struct {
	Timestamp string            `json:"ts"`
	Event     string            `json:"event"`
	SessionID string            `json:"session_id"`
	Details   map[string]string `json:"details,omitempty"`
}

// OpenLog opens (or creates) the log at path in append mode.
func OpenLog(path, sessionID string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Log{file: f, sessionID: sessionID}, nil
}

// Event writes one record. Writes after Close are dropped.
func (l *Log) Event(event string, details map[string]string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	_ = json.NewEncoder(l.file).Encode(logRecord{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Event:     event,
		SessionID: l.sessionID,
		Details:   details,
	})
}

func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Log) reopen(path string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	l.mu.Lock()
	l.file = f
	l.mu.Unlock()
}
