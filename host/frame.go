package host

import (
	"net/url"
	"strings"

	"macroclock/settings"
)

// Frame types exchanged on the watch link.
const (
	FrameAppMessage = "appmessage"
	FrameAck        = "ack"
	FrameNack       = "nack"
)

// WatchPath is where the watchface process connects.
const WatchPath = "/ws/watch"

// Frame is one JSON message on the watch link. App messages carry the
// settings record; replies carry the transaction id they answer.
type Frame struct {
	Type          string          `json:"type"`
	TransactionID string          `json:"transaction_id"`
	Payload       settings.Record `json:"payload"`
	Error         string          `json:"error,omitempty"`
}

// WatchURL turns a server address into the websocket URL of the watch link.
func WatchURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + WatchPath
	u.RawQuery = ""
	return u.String(), nil
}
