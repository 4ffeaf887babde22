package service

import (
	"context"
	"sync"

	"macroclock/bridge"
	"macroclock/models"
	"macroclock/settings"
)

// SettingsService dispatches host events to the bridge one at a time.
// HTTP handlers run concurrently; the bridge expects serialized events.
type SettingsService struct {
	mu     sync.Mutex
	bridge *bridge.Bridge
	last   *bridge.Delivery
}

// NewSettingsService constructs a settings service
func NewSettingsService(b *bridge.Bridge) *SettingsService {
	return &SettingsService{bridge: b}
}

// ShowConfiguration opens the configuration page pre-filled from the stored record
func (s *SettingsService) ShowConfiguration(ctx context.Context) (*models.ConfigurationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.bridge.ShowConfiguration(ctx)
	if err != nil {
		return nil, err
	}
	return &models.ConfigurationResponse{URL: link, Layout: s.bridge.Layout().Name}, nil
}

// WebviewClosed stores the returned record and starts the watchface delivery
func (s *SettingsService) WebviewClosed(ctx context.Context, response string) (*bridge.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.bridge.WebviewClosed(ctx, response)
	if err != nil {
		return nil, err
	}
	s.last = d
	return d, nil
}

// Current returns the stored record, nil when none is stored
func (s *SettingsService) Current(ctx context.Context) settings.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bridge.Current(ctx)
}

// LastDelivery reports the most recent delivery, nil if nothing was sent yet
func (s *SettingsService) LastDelivery() *models.DeliveryStatus {
	s.mu.Lock()
	d := s.last
	s.mu.Unlock()

	if d == nil {
		return nil
	}
	status := DeliveryStatus(d)
	return &status
}

// DeliveryStatus converts a delivery into its JSON view.
func DeliveryStatus(d *bridge.Delivery) models.DeliveryStatus {
	o, attempts := d.Outcome()
	status := models.DeliveryStatus{
		Attempts:  attempts,
		StartedAt: d.StartedAt,
	}
	select {
	case <-d.Done():
		status.Completed = true
		status.Acked = o.Acked
		status.Reason = o.Reason
	default:
	}
	return status
}
