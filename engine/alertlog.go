package engine

import (
	"sync"

	"github.com/mskavach/kavach/model"
)

// AlertLog is the append-only record of classification outcomes.
// Unbounded: a session produces one entry per analyzed frame.
type AlertLog struct {
	mu      sync.RWMutex
	entries []model.LogEntry
}

// NewAlertLog creates an empty log.
func NewAlertLog() *AlertLog {
	return &AlertLog{}
}

// Append adds an entry at the end of the log.
func (l *AlertLog) Append(e model.LogEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// All returns a copy of the entries in insertion order.
func (l *AlertLog) All() []model.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return nil
	}
	out := make([]model.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *AlertLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear empties the log.
func (l *AlertLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
