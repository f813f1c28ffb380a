// Package cmdlog appends line-delimited JSON records of every routed
// or failed exchange for offline inspection.
package cmdlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// summaryLimit caps the stored response summary.
const summaryLimit = 500

// Entry is one appended record.
type Entry struct {
	Timestamp       time.Time `json:"timestamp"`
	Transcription   string    `json:"transcription"`
	AgentID         *string   `json:"agentId"`
	Mode            string    `json:"mode"`
	ResponseSummary string    `json:"responseSummary"`
}

// Logger appends entries to a JSONL file. Safe for concurrent use.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New creates a command logger writing to path. An empty path disables
// logging.
func New(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

// Append writes one record. agentID may be empty for non-routed turns.
func (l *Logger) Append(transcription, agentID, mode, response string) error {
	if l.path == "" {
		return nil
	}

	if runes := []rune(response); len(runes) > summaryLimit {
		response = string(runes[:summaryLimit])
	}

	entry := Entry{
		Timestamp:       l.now(),
		Transcription:   transcription,
		Mode:            mode,
		ResponseSummary: response,
	}
	if agentID != "" {
		entry.AgentID = &agentID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cmdlog: encode entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cmdlog: create directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cmdlog: open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("cmdlog: write entry: %w", err)
	}
	return nil
}
