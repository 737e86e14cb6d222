package mail

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ConsoleProvider logs messages instead of delivering them.
type ConsoleProvider struct {
	from string

	mu   sync.Mutex
	sent []Message
}

var _ Provider = (*ConsoleProvider)(nil)

func NewConsoleProvider(from string) *ConsoleProvider {
	return &ConsoleProvider{from: from}
}

func (p *ConsoleProvider) Deliver(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "From: %s\r\n", p.from)
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n\r\n", strings.Join(msg.To, ", "))
	_, _ = fmt.Fprintf(body, "%s\r\n", msg.Text)
	log.Info(body.String())

	p.mu.Lock()
	p.sent = append(p.sent, msg)
	p.mu.Unlock()

	return Receipt{ID: "console-" + uuid.New().String()}, nil
}

// Sent returns a copy of every message delivered so far.
func (p *ConsoleProvider) Sent() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}
