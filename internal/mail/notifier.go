package mail

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffUnit = time.Second
	DefaultTimeout     = 10 * time.Second
)

// Notifier is a Sender that retries a Provider with linear backoff.
type Notifier struct {
	provider    Provider
	maxAttempts int
	backoffUnit time.Duration
	timeout     time.Duration

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Notifier)

func WithMaxAttempts(n int) Option {
	return func(nt *Notifier) {
		if n > 0 {
			nt.maxAttempts = n
		}
	}
}

func WithBackoffUnit(d time.Duration) Option {
	return func(nt *Notifier) {
		if d >= 0 {
			nt.backoffUnit = d
		}
	}
}

// WithTimeout bounds every single provider call.
func WithTimeout(d time.Duration) Option {
	return func(nt *Notifier) {
		if d > 0 {
			nt.timeout = d
		}
	}
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(nt *Notifier) { nt.sleep = sleep }
}

func NewNotifier(p Provider, opts ...Option) *Notifier {
	n := &Notifier{
		provider:    p,
		maxAttempts: DefaultMaxAttempts,
		backoffUnit: DefaultBackoffUnit,
		timeout:     DefaultTimeout,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var _ Sender = (*Notifier)(nil)

// Send tries up to maxAttempts times, waiting attempt*backoffUnit after each
// failed attempt. A receipt without an id is a failed attempt.
func (n *Notifier) Send(ctx context.Context, msg Message) (string, error) {
	if !msg.HasRecipients() {
		return "", &DeliveryError{Attempts: 0, Err: ErrNoRecipients}
	}

	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		id, err := n.attempt(ctx, msg)
		if err == nil {
			log.Infof("email %q sent to %v (id %s, attempt %d)", msg.Subject, msg.To, id, attempt)
			return id, nil
		}
		lastErr = err
		log.Warnf("email %q to %v attempt %d/%d failed: %v", msg.Subject, msg.To, attempt, n.maxAttempts, err)

		if attempt == n.maxAttempts {
			break
		}
		if err := n.sleep(ctx, time.Duration(attempt)*n.backoffUnit); err != nil {
			return "", &DeliveryError{Attempts: attempt, Err: err}
		}
	}

	return "", &DeliveryError{Attempts: n.maxAttempts, Err: lastErr}
}

func (n *Notifier) attempt(ctx context.Context, msg Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	r, err := n.provider.Deliver(ctx, msg)
	if err != nil {
		return "", err
	}
	if r.ID == "" {
		return "", ErrNoDeliveryID
	}
	return r.ID, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewProvider returns the SendGrid provider when a key is configured and the
// console provider otherwise.
func NewProvider(sendgridKey, fromName, fromEmail string) Provider {
	if sendgridKey == "" {
		log.Warn("SENDGRID_API_KEY not set, emails are written to the log only")
		return NewConsoleProvider(fromEmail)
	}
	return NewSendGridProvider(sendgridKey, fromName, fromEmail)
}
