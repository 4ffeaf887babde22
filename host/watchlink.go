package host

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"macroclock/bridge"
	"macroclock/settings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("watchface not connected")
	ErrAckTimeout   = errors.New("timeout waiting for ack")
	ErrLinkClosed   = errors.New("connection closed")
)

const (
	writeTimeout = 5 * time.Second
	maxFrameSize = 64 << 10
)

type pendingSend struct {
	conn *websocket.Conn
	wait chan bridge.Outcome
}

// WatchLink is the server side of the websocket connection to the
// watchface process. One watch is connected at a time; a new connection
// replaces the old one.
type WatchLink struct {
	upgrader   websocket.Upgrader
	ackTimeout time.Duration
	logger     *logrus.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool
	pending  map[string]pendingSend
	onChange func(connected bool)

	writeMu sync.Mutex
}

// NewWatchLink creates a link that rejects sends not acknowledged within
// ackTimeout.
func NewWatchLink(ackTimeout time.Duration, logger *logrus.Logger) *WatchLink {
	if ackTimeout <= 0 {
		ackTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WatchLink{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ackTimeout: ackTimeout,
		logger:     logger,
		pending:    make(map[string]pendingSend),
	}
}

// SetOnStateChange sets a function called when a watch connects or the
// current watch disconnects.
func (l *WatchLink) SetOnStateChange(callback func(connected bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = callback
}

// Connected reports whether a watch is attached.
func (l *WatchLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// ServeHTTP upgrades the request and serves the watch until it disconnects.
func (l *WatchLink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		http.Error(w, "watch link closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.WithError(err).Warn("Watch link upgrade failed")
		return
	}
	conn.SetReadLimit(maxFrameSize)

	l.mu.Lock()
	prev := l.conn
	l.conn = conn
	callback := l.onChange
	l.mu.Unlock()

	if prev != nil {
		l.logger.Info("Replacing previous watch connection")
		_ = prev.Close()
	}
	l.logger.WithField("remote", r.RemoteAddr).Info("Watchface connected")
	if callback != nil {
		callback(true)
	}

	l.readLoop(conn)
}

func (l *WatchLink) readLoop(conn *websocket.Conn) {
	defer l.detach(conn)

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.logger.WithError(err).Debug("Watch link read ended")
			}
			return
		}

		switch frame.Type {
		case FrameAck:
			l.resolve(frame.TransactionID, bridge.Acknowledged())
		case FrameNack:
			reason := frame.Error
			if reason == "" {
				reason = "rejected by watchface"
			}
			l.resolve(frame.TransactionID, bridge.Rejected(reason))
		default:
			l.logger.WithField("type", frame.Type).Debug("Ignoring watch frame")
		}
	}
}

// detach drops conn and fails the sends still waiting on it.
func (l *WatchLink) detach(conn *websocket.Conn) {
	_ = conn.Close()

	l.mu.Lock()
	current := l.conn == conn
	if current {
		l.conn = nil
	}
	var failed []chan bridge.Outcome
	for id, p := range l.pending {
		if p.conn == conn {
			failed = append(failed, p.wait)
			delete(l.pending, id)
		}
	}
	callback := l.onChange
	l.mu.Unlock()

	for _, wait := range failed {
		wait <- bridge.Rejected(ErrLinkClosed.Error())
	}
	if current {
		l.logger.Info("Watchface disconnected")
		if callback != nil {
			callback(false)
		}
	}
}

// Send transmits rec as an app message. The returned channel yields one
// Outcome: the watch's ack or nack, or a rejection when no watch is
// connected, the ack does not arrive in time or the link drops.
func (l *WatchLink) Send(ctx context.Context, rec settings.Record) <-chan bridge.Outcome {
	out := make(chan bridge.Outcome, 1)

	l.mu.Lock()
	conn := l.conn
	if conn == nil {
		l.mu.Unlock()
		out <- bridge.Rejected(ErrNotConnected.Error())
		return out
	}
	id := uuid.NewString()
	wait := make(chan bridge.Outcome, 1)
	l.pending[id] = pendingSend{conn: conn, wait: wait}
	l.mu.Unlock()

	frame := Frame{Type: FrameAppMessage, TransactionID: id, Payload: rec}
	if err := l.write(conn, frame); err != nil {
		l.resolve(id, bridge.Rejected("send failed: "+err.Error()))
	} else {
		l.logger.WithField("transaction_id", id).Debug("App message sent")
	}

	go func() {
		timer := time.NewTimer(l.ackTimeout)
		defer timer.Stop()

		select {
		case o := <-wait:
			out <- o
		case <-timer.C:
			l.forget(id)
			out <- bridge.Rejected(ErrAckTimeout.Error())
		case <-ctx.Done():
			l.forget(id)
			out <- bridge.Rejected(ctx.Err().Error())
		}
	}()
	return out
}

func (l *WatchLink) write(conn *websocket.Conn, frame Frame) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(frame)
}

func (l *WatchLink) resolve(id string, o bridge.Outcome) {
	l.mu.Lock()
	p, ok := l.pending[id]
	delete(l.pending, id)
	l.mu.Unlock()

	if !ok {
		l.logger.WithField("transaction_id", id).Debug("Reply for unknown transaction")
		return
	}
	p.wait <- o
}

func (l *WatchLink) forget(id string) {
	l.mu.Lock()
	delete(l.pending, id)
	l.mu.Unlock()
}

// Close disconnects the watch and refuses new connections.
func (l *WatchLink) Close() error {
	l.mu.Lock()
	l.closed = true
	conn := l.conn
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	l.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
		time.Now().Add(time.Second))
	l.writeMu.Unlock()
	return conn.Close()
}
