package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	mu       sync.Mutex
	calls    int
	deadline []bool
	replies  []func() (Receipt, error)
}

func (p *scriptedProvider) Deliver(ctx context.Context, msg Message) (Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := ctx.Deadline()
	p.deadline = append(p.deadline, ok)
	i := p.calls
	p.calls++
	if i < len(p.replies) {
		return p.replies[i]()
	}
	return Receipt{}, errors.New("provider down")
}

func recordSleeps(delays *[]time.Duration) Option {
	return WithSleep(func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

var testMsg = Message{To: []string{"scholar@hk.test"}, Subject: "Account Created - HK-SAMMS", Text: "Hello"}

func TestNotifierStopsAtMaxAttempts(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		replies  []func() (Receipt, error)
	}{
		{name: "errors", attempts: 3},
		{name: "two attempts", attempts: 2},
		{
			name: "missing delivery id", attempts: 3,
			replies: []func() (Receipt, error){
				func() (Receipt, error) { return Receipt{}, nil },
				func() (Receipt, error) { return Receipt{}, nil },
				func() (Receipt, error) { return Receipt{}, nil },
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{replies: tt.replies}
			var delays []time.Duration
			n := NewNotifier(p, WithMaxAttempts(tt.attempts), WithBackoffUnit(time.Second), recordSleeps(&delays))

			id, err := n.Send(context.Background(), testMsg)

			assert.Empty(t, id)
			var derr *DeliveryError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.attempts, derr.Attempts)
			assert.Equal(t, tt.attempts, p.calls)
			require.Len(t, delays, tt.attempts-1)
			for i := 1; i < len(delays); i++ {
				assert.GreaterOrEqual(t, delays[i], delays[i-1])
			}
			for i, d := range delays {
				assert.Equal(t, time.Duration(i+1)*time.Second, d)
			}
			if tt.replies != nil {
				assert.ErrorIs(t, err, ErrNoDeliveryID)
			}
		})
	}
}

func TestNotifierSucceedsAfterRetry(t *testing.T) {
	p := &scriptedProvider{replies: []func() (Receipt, error){
		func() (Receipt, error) { return Receipt{}, errors.New("timeout") },
		func() (Receipt, error) { return Receipt{ID: "msg-123"}, nil },
	}}
	var delays []time.Duration
	n := NewNotifier(p, recordSleeps(&delays))

	id, err := n.Send(context.Background(), testMsg)

	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)
	assert.Equal(t, 2, p.calls)
	assert.Equal(t, []time.Duration{time.Second}, delays)
	assert.Equal(t, []bool{true, true}, p.deadline, "every attempt carries a timeout")
}

func TestNotifierNoRecipients(t *testing.T) {
	p := &scriptedProvider{}
	n := NewNotifier(p)

	_, err := n.Send(context.Background(), Message{Subject: "x", To: []string{" "}})

	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Zero(t, p.calls)
}

func TestNotifierCancelledDuringBackoff(t *testing.T) {
	p := &scriptedProvider{}
	ctx, cancel := context.WithCancel(context.Background())
	n := NewNotifier(p, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := n.Send(ctx, testMsg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.calls)
}

func TestMessageHTMLBody(t *testing.T) {
	m := Message{Text: "Hello <Ana>,\n\nWelcome aboard!"}
	assert.Equal(t, "Hello &lt;Ana&gt;,<br><br>Welcome aboard!", m.HTMLBody())

	m.HTML = "<p>custom</p>"
	assert.Equal(t, "<p>custom</p>", m.HTMLBody())
}

func TestConsoleProvider(t *testing.T) {
	p := NewConsoleProvider("HK-SAMMS <noreply@hksamms.app>")
	n := NewNotifier(p)

	id, err := n.Send(context.Background(), testMsg)

	require.NoError(t, err)
	assert.Contains(t, id, "console-")
	require.Len(t, p.Sent(), 1)
	assert.Equal(t, testMsg.Subject, p.Sent()[0].Subject)
}

func TestNewProvider(t *testing.T) {
	assert.IsType(t, &ConsoleProvider{}, NewProvider("", "HK-SAMMS", "noreply@hk.test"))
	assert.IsType(t, &SendGridProvider{}, NewProvider("SG.key", "HK-SAMMS", "noreply@hk.test"))
}
