package models

import "time"

// HealthStatus is reported by GET /api/health.
type HealthStatus struct {
	Status             string    `json:"status"` // ok, degraded
	Version            string    `json:"version"`
	StoreUp            bool      `json:"store_up"`
	WatchConnected     bool      `json:"watch_connected"`
	ConfigurationOpens int       `json:"configuration_opens"`
	LastURL            string    `json:"last_url,omitempty"`
	LastOpenedAt       time.Time `json:"last_opened_at,omitempty"`
}
