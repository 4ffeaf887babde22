package models

import "time"

// LogEntry is a recent diagnostic log line kept in memory
type LogEntry struct {
	ID        int            `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"` // DEBUG, INFO, WARNING, ERROR
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}
