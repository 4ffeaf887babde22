package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"macroclock/settings"
)

// Outcome is the terminal result of one message send.
type Outcome struct {
	Acked   bool
	Reason  string
	Attempt int
}

// Acknowledged is the outcome of a send the watchface confirmed.
func Acknowledged() Outcome {
	return Outcome{Acked: true}
}

// Rejected is the outcome of a failed send.
func Rejected(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Err returns nil for an acknowledged outcome and an ErrDeliveryRejected
// wrapper otherwise.
func (o Outcome) Err() error {
	if o.Acked {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDeliveryRejected, o.Reason)
}

// RetryPolicy controls resending after a rejection. The zero value sends once.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// backoff returns the wait before retry n (0-based).
func (p RetryPolicy) backoff(n int) time.Duration {
	d := p.InitialBackoff
	for i := 0; i < n; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// Delivery tracks the message sends for one saved record.
type Delivery struct {
	Record    settings.Record
	StartedAt time.Time

	done     chan struct{}
	mu       sync.Mutex
	outcome  Outcome
	attempts int
}

// Done is closed once the final outcome is known.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Outcome returns the latest outcome and the number of attempts so far.
func (d *Delivery) Outcome() (Outcome, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome, d.attempts
}

// Wait blocks until the final outcome or ctx is done.
func (d *Delivery) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-d.done:
		o, _ := d.Outcome()
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (d *Delivery) record(o Outcome) {
	d.mu.Lock()
	d.outcome = o
	d.attempts = o.Attempt
	d.mu.Unlock()
}

// deliver starts the first send synchronously and follows its outcome on a
// separate goroutine.
func (b *Bridge) deliver(ctx context.Context, rec settings.Record) *Delivery {
	d := &Delivery{
		Record:    rec,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	first := b.sender.Send(ctx, rec)
	go b.track(ctx, d, first)
	return d
}

func (b *Bridge) track(ctx context.Context, d *Delivery, pending <-chan Outcome) {
	defer close(d.done)

	for attempt := 1; ; attempt++ {
		o, ok := <-pending
		if !ok {
			o = Rejected("delivery channel closed")
		}
		o.Attempt = attempt
		d.record(o)
		b.report(o)

		if o.Acked || attempt > b.retry.MaxRetries {
			return
		}
		if !b.sleep(b.retry.backoff(attempt - 1)) {
			return
		}
		pending = b.sender.Send(ctx, d.Record)
	}
}

// report writes the single diagnostic entry for an outcome.
func (b *Bridge) report(o Outcome) {
	b.recorder.MessageOutcome(o.Acked)
	entry := b.logger.WithField("attempt", o.Attempt)
	if o.Acked {
		entry.Info("JSON options sent to watchface")
		return
	}
	entry.WithField("reason", o.Reason).Warn("JSON options not sent to watchface: " + o.Reason)
}
