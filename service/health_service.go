package service

import (
	"context"
	"time"

	"macroclock/host"
	"macroclock/models"
	"macroclock/version"
)

// Pinger checks that a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService reports store and watch link health
type HealthService struct {
	store   Pinger
	webview *host.Webview
	link    *host.WatchLink
}

// NewHealthService constructs a health service
func NewHealthService(store Pinger, webview *host.Webview, link *host.WatchLink) *HealthService {
	return &HealthService{store: store, webview: webview, link: link}
}

// Check returns "ok" when the store answers, "degraded" otherwise. A
// missing watch does not degrade health: the watchface connects on demand.
func (s *HealthService) Check(ctx context.Context) models.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	status := models.HealthStatus{
		Status:  "ok",
		Version: version.GetFullVersion(),
		StoreUp: s.store != nil && s.store.Ping(ctx) == nil,
	}
	if !status.StoreUp {
		status.Status = "degraded"
	}
	if s.link != nil {
		status.WatchConnected = s.link.Connected()
	}
	if s.webview != nil {
		status.ConfigurationOpens = s.webview.Opens()
		status.LastURL, status.LastOpenedAt, _ = s.webview.LastURL()
	}
	return status
}
