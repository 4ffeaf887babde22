package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"macroclock/models"
	"macroclock/settings"
)

// Client is the HTTP client for talking to the settings bridge server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new HTTP client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-OK envelope returned by the server
type APIError struct {
	Status  int
	Code    string
	Message string
	Detail  json.RawMessage
}

func (e *APIError) Error() string {
	if len(e.Detail) > 0 && string(e.Detail) != "null" {
		return fmt.Sprintf("%s (HTTP %d): %s %s", e.Code, e.Status, e.Message, string(e.Detail))
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call sends body as JSON and decodes the envelope's data into out.
// A non-OK envelope comes back as *APIError.
func (c *Client) call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Code == "" {
		return fmt.Errorf("HTTP %d: unexpected body %q", resp.StatusCode, truncate(string(raw), 200))
	}
	if env.Code != "OK" {
		return newAPIError(resp.StatusCode, env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func newAPIError(status int, env envelope) *APIError {
	apiErr := &APIError{Status: status, Code: env.Code, Message: env.Message, Detail: env.Data}
	var wrapped struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(env.Data, &wrapped) == nil && len(wrapped.Detail) > 0 {
		apiErr.Detail = wrapped.Detail
	}
	return apiErr
}

// HealthCheck fetches the server health
func (c *Client) HealthCheck() (*models.HealthStatus, error) {
	var health models.HealthStatus
	if err := c.call(http.MethodGet, "/api/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ShowConfiguration asks the server to open the configuration page
func (c *Client) ShowConfiguration() (*models.ConfigurationResponse, error) {
	var conf models.ConfigurationResponse
	if err := c.call(http.MethodGet, "/api/configuration", nil, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// ClosedResult is the server's answer to a configuration response
type ClosedResult struct {
	Saved    bool                  `json:"saved"`
	Delivery models.DeliveryStatus `json:"delivery"`
}

// WebviewClosed submits an encoded configuration response. With wait the
// server holds the request until the watchface answers.
func (c *Client) WebviewClosed(response string, wait bool) (*ClosedResult, error) {
	path := "/api/webview/closed"
	if wait {
		path += "?wait=1"
	}
	var result ClosedResult
	if err := c.call(http.MethodPost, path, models.WebviewClosedRequest{Response: response}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SettingsView is the stored record as reported by the server
type SettingsView struct {
	Stored       bool                   `json:"stored"`
	Record       settings.Record        `json:"record"`
	LastDelivery *models.DeliveryStatus `json:"last_delivery"`
}

// GetSettings fetches the stored settings record
func (c *Client) GetSettings() (*SettingsView, error) {
	var view SettingsView
	if err := c.call(http.MethodGet, "/api/settings", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetLogs fetches recent diagnostic log entries
func (c *Client) GetLogs() ([]*models.LogEntry, error) {
	var logs []*models.LogEntry
	err := c.call(http.MethodGet, "/api/logs", nil, &logs)
	return logs, err
}

// ClearLogs deletes the buffered log entries
func (c *Client) ClearLogs() error {
	return c.call(http.MethodDelete, "/api/logs", nil, nil)
}
