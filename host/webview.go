// Package host provides the runtime capabilities the settings bridge
// depends on: a webview that shows configuration pages and a message link
// to the watchface process.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

// ErrNoPage is returned when no configuration page has been opened yet.
var ErrNoPage = errors.New("no configuration page opened")

// Webview publishes the configuration page URL to the phone. The most
// recent URL is kept together with its QR code so a device can scan it.
type Webview struct {
	mu       sync.RWMutex
	lastURL  string
	openedAt time.Time
	opens    int
	qrCode   []byte
	qrSize   int
	onOpen   func(url string)
	logger   *logrus.Logger
}

// NewWebview creates a Webview rendering QR codes of qrSize pixels.
func NewWebview(qrSize int, logger *logrus.Logger) *Webview {
	if qrSize <= 0 {
		qrSize = 256
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Webview{qrSize: qrSize, logger: logger}
}

// OpenURL makes url the current configuration page.
func (w *Webview) OpenURL(_ context.Context, url string) error {
	if url == "" {
		return errors.New("empty url")
	}
	qrCode, err := qrcode.Encode(url, qrcode.Medium, w.qrSize)
	if err != nil {
		return fmt.Errorf("failed to render QR code: %w", err)
	}

	w.mu.Lock()
	w.lastURL = url
	w.openedAt = time.Now()
	w.opens++
	w.qrCode = qrCode
	callback := w.onOpen
	w.mu.Unlock()

	w.logger.WithField("url", url).Debug("Webview page updated")
	if callback != nil {
		callback(url)
	}
	return nil
}

// LastURL returns the current page and when it was opened.
func (w *Webview) LastURL() (string, time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastURL, w.openedAt, w.lastURL != ""
}

// Opens is the number of pages opened since start.
func (w *Webview) Opens() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.opens
}

// QRCodePNG returns the QR code of the current page as PNG bytes.
func (w *Webview) QRCodePNG() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.qrCode == nil {
		return nil, ErrNoPage
	}
	return w.qrCode, nil
}

// SetOnOpenCallback sets a function called after every opened page.
func (w *Webview) SetOnOpenCallback(callback func(url string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onOpen = callback
}
