// Package bridge connects the stored watchface settings, the browser
// configuration page and the watchface process.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"macroclock/settings"

	"github.com/sirupsen/logrus"
)

// DefaultStorageKey is the key the settings record is stored under.
const DefaultStorageKey = "macroClockOptions"

// Store is the key-value slot the record lives in.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// URLOpener asks the host to show a URL in the configuration webview.
type URLOpener interface {
	OpenURL(ctx context.Context, url string) error
}

// MessageSender delivers a record to the watchface. The returned channel
// yields exactly one Outcome, possibly long after Send returns.
type MessageSender interface {
	Send(ctx context.Context, rec settings.Record) <-chan Outcome
}

// Recorder receives operational counters. All methods must be cheap.
type Recorder interface {
	ConfigurationOpened(withRecord bool)
	WebviewClosed(result string)
	MessageOutcome(acked bool)
}

// Webview-closed results reported to the Recorder.
const (
	ResultSaved      = "saved"
	ResultMalformed  = "malformed"
	ResultStoreError = "store_error"
)

// Options wires a Bridge to its host.
type Options struct {
	Store      Store
	Opener     URLOpener
	Sender     MessageSender
	Layout     settings.Layout
	StorageKey string
	Logger     *logrus.Logger
	Recorder   Recorder
	Retry      RetryPolicy
}

// Bridge handles the configuration events of one watchface application.
// The host delivers events one at a time; Bridge methods do not block on
// URL opening or message delivery.
type Bridge struct {
	store    Store
	opener   URLOpener
	sender   MessageSender
	layout   settings.Layout
	key      string
	logger   *logrus.Logger
	recorder Recorder
	retry    RetryPolicy
	quit     chan struct{}
	stopOnce sync.Once
}

// New validates opts and builds a Bridge.
func New(opts Options) (*Bridge, error) {
	if opts.Store == nil {
		return nil, errors.New("bridge: store is required")
	}
	if opts.Opener == nil {
		return nil, errors.New("bridge: url opener is required")
	}
	if opts.Sender == nil {
		return nil, errors.New("bridge: message sender is required")
	}
	if opts.Layout.BaseURL == "" {
		opts.Layout = settings.ClassicLayout(settings.DefaultHost)
	}
	if opts.StorageKey == "" {
		opts.StorageKey = DefaultStorageKey
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}

	return &Bridge{
		store:    opts.Store,
		opener:   opts.Opener,
		sender:   opts.Sender,
		layout:   opts.Layout,
		key:      opts.StorageKey,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		retry:    opts.Retry.normalize(),
		quit:     make(chan struct{}),
	}, nil
}

// Layout returns the configuration page layout in use.
func (b *Bridge) Layout() settings.Layout {
	return b.layout
}

// ShowConfiguration builds the configuration URL from the stored record and
// asks the host to open it. It returns the URL that was opened.
func (b *Bridge) ShowConfiguration(ctx context.Context) (string, error) {
	rec := b.load(ctx)
	link := b.layout.URL(rec)

	b.logger.WithFields(logrus.Fields{
		"url":    link,
		"layout": b.layout.Name,
	}).Info("Opening configuration page")

	if err := b.opener.OpenURL(ctx, link); err != nil {
		return link, fmt.Errorf("failed to open configuration page: %w", err)
	}
	b.recorder.ConfigurationOpened(rec != nil)
	return link, nil
}

// WebviewClosed handles the payload the configuration page returned. The
// record is stored and one message send is started before it returns; the
// returned Delivery reports the outcome. On a malformed payload nothing is
// stored or sent.
func (b *Bridge) WebviewClosed(ctx context.Context, response string) (*Delivery, error) {
	b.logger.WithField("response", response).Info("Configuration window returned")

	rec, err := ParseResponse(response)
	if err != nil {
		b.recorder.WebviewClosed(ResultMalformed)
		b.logger.WithError(err).Warn("Ignoring configuration response")
		return nil, err
	}

	text, err := settings.Encode(rec)
	if err != nil {
		b.recorder.WebviewClosed(ResultMalformed)
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	b.logger.WithField("options", text).Debug("Decoded configuration options")

	if err := b.store.Set(ctx, b.key, text); err != nil {
		b.recorder.WebviewClosed(ResultStoreError)
		b.logger.WithError(err).Error("Failed to store configuration options")
		return nil, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	b.recorder.WebviewClosed(ResultSaved)

	return b.deliver(context.WithoutCancel(ctx), rec), nil
}

// Current returns the stored record, or nil when none is stored or it
// cannot be read.
func (b *Bridge) Current(ctx context.Context) settings.Record {
	return b.load(ctx)
}

// Close stops pending delivery retries. It is safe to call more than once.
func (b *Bridge) Close() {
	b.stopOnce.Do(func() { close(b.quit) })
}

// load reads the stored record. Missing, unreadable and corrupt records all
// mean "no prior settings".
func (b *Bridge) load(ctx context.Context) settings.Record {
	text, ok, err := b.store.Get(ctx, b.key)
	if err != nil {
		b.logger.WithError(err).WithField("key", b.key).Warn("Failed to read stored options, using defaults")
		return nil
	}
	if !ok {
		return nil
	}

	rec, err := settings.Decode(text)
	if err != nil {
		b.logger.WithError(err).WithField("key", b.key).Warn("Stored options are corrupt, using defaults")
		return nil
	}
	return rec
}

// ParseResponse decodes a webview payload: percent-encoding outside, JSON
// object inside.
func ParseResponse(response string) (settings.Record, error) {
	decoded, err := settings.DecodeURIComponent(response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	rec, err := settings.Decode(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return rec, nil
}

type nopRecorder struct{}

func (nopRecorder) ConfigurationOpened(bool) {}
func (nopRecorder) WebviewClosed(string)     {}
func (nopRecorder) MessageOutcome(bool)      {}

// sleep waits for d unless the bridge is closed first.
func (b *Bridge) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-b.quit:
		return false
	}
}
