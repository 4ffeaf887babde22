package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WatchClient is the watchface side of the link. It is used by the CLI
// simulator and by tests.
type WatchClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// DialWatch connects to the watch link of the server at addr.
func DialWatch(ctx context.Context, addr string) (*WatchClient, error) {
	wsURL, err := WatchURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid server address: %w", err)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	return &WatchClient{conn: conn}, nil
}

// Receive waits for the next app message. The context deadline, if any,
// bounds the wait.
func (c *WatchClient) Receive(ctx context.Context) (Frame, error) {
	deadline, _ := ctx.Deadline()
	_ = c.conn.SetReadDeadline(deadline)

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return Frame{}, err
		}
		if frame.Type == FrameAppMessage {
			return frame, nil
		}
	}
}

// Ack confirms the app message with the given transaction id.
func (c *WatchClient) Ack(transactionID string) error {
	return c.write(Frame{Type: FrameAck, TransactionID: transactionID})
}

// Nack rejects the app message with the given transaction id.
func (c *WatchClient) Nack(transactionID, reason string) error {
	return c.write(Frame{Type: FrameNack, TransactionID: transactionID, Error: reason})
}

func (c *WatchClient) write(frame Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(frame)
}

// Close sends a close frame and drops the connection.
func (c *WatchClient) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}
