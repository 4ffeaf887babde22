package models

import "time"

// DeliveryStatus is the JSON view of a watchface message delivery.
type DeliveryStatus struct {
	Acked     bool      `json:"acked"`
	Reason    string    `json:"reason,omitempty"`
	Attempts  int       `json:"attempts"`
	Completed bool      `json:"completed"`
	StartedAt time.Time `json:"started_at"`
}

// WebviewClosedRequest is the body posted when the configuration page closes.
type WebviewClosedRequest struct {
	Response string `json:"response"`
}

// ConfigurationResponse is returned when the configuration page is requested.
type ConfigurationResponse struct {
	URL    string `json:"url"`
	Layout string `json:"layout"`
}
