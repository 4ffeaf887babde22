package service

import (
	"strings"
	"sync"

	"macroclock/models"

	"github.com/sirupsen/logrus"
)

// LogBuffer is a logrus hook keeping the most recent entries in memory
// so they can be served over the API.
type LogBuffer struct {
	mu        sync.RWMutex
	logs      []*models.LogEntry
	maxLogs   int
	idCounter int
	levels    []logrus.Level
}

// NewLogBuffer keeps up to maxLogs entries at minLevel or more severe.
func NewLogBuffer(maxLogs int, minLevel logrus.Level) *LogBuffer {
	if maxLogs <= 0 {
		maxLogs = 100
	}
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, lvl := range logrus.AllLevels {
		if lvl <= minLevel {
			levels = append(levels, lvl)
		}
	}
	return &LogBuffer{
		logs:    make([]*models.LogEntry, 0, maxLogs),
		maxLogs: maxLogs,
		levels:  levels,
	}
}

// Levels implements logrus.Hook.
func (b *LogBuffer) Levels() []logrus.Level {
	return b.levels
}

// Fire implements logrus.Hook.
func (b *LogBuffer) Fire(entry *logrus.Entry) error {
	var fields map[string]any
	if len(entry.Data) > 0 {
		fields = make(map[string]any, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			fields[k] = v
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.logs) >= b.maxLogs {
		b.logs = b.logs[1:]
	}
	b.idCounter++
	b.logs = append(b.logs, &models.LogEntry{
		ID:        b.idCounter,
		Timestamp: entry.Time,
		Level:     strings.ToUpper(entry.Level.String()),
		Message:   entry.Message,
		Fields:    fields,
	})
	return nil
}

// Entries returns the buffered entries, latest first
func (b *LogBuffer) Entries() []*models.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := len(b.logs)
	result := make([]*models.LogEntry, total)
	for i := 0; i < total; i++ {
		result[i] = b.logs[total-1-i]
	}
	return result
}

// Clear removes all entries
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = make([]*models.LogEntry, 0, b.maxLogs)
	b.idCounter = 0
}
