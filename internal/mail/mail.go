package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
)

var (
	ErrNoRecipients = errors.New("message has no recipients")
	ErrNoDeliveryID = errors.New("provider response has no delivery id")
)

type (
	Message struct {
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Text    string   `json:"text"`
		HTML    string   `json:"html,omitempty"`
	}

	// Receipt is the provider answer to one delivery request.
	Receipt struct {
		ID string
	}

	// Provider performs a single delivery attempt.
	Provider interface {
		Deliver(ctx context.Context, msg Message) (Receipt, error)
	}

	// Sender delivers a message and returns its delivery identifier.
	// A nil error always comes with a non-empty identifier.
	Sender interface {
		Send(ctx context.Context, msg Message) (string, error)
	}
)

// HTMLBody returns the rich-text body, derived from Text when HTML is empty.
func (m Message) HTMLBody() string {
	if m.HTML != "" {
		return m.HTML
	}
	return strings.ReplaceAll(html.EscapeString(m.Text), "\n", "<br>")
}

func (m Message) HasRecipients() bool {
	for _, to := range m.To {
		if strings.TrimSpace(to) != "" {
			return true
		}
	}
	return false
}

// DeliveryError is returned once every attempt failed.
type DeliveryError struct {
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email delivery failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
