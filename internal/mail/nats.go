package mail

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hksamms/samms-services/internal/comm"
)

type requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// NatsSender hands messages to the notify service over NATS request/reply.
// Retries happen on the notify service side.
type NatsSender struct {
	conn    requester
	subject string
	timeout time.Duration
}

var _ Sender = (*NatsSender)(nil)

func NewNatsSender(conn requester, subject string, timeout time.Duration) *NatsSender {
	if subject == "" {
		subject = comm.SubjectNotifyEmail
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NatsSender{conn: conn, subject: subject, timeout: timeout}
}

func (s *NatsSender) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(comm.EmailRequest{
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.conn.RequestWithContext(ctx, s.subject, payload)
	if err != nil {
		return "", &DeliveryError{Attempts: 1, Err: err}
	}

	var reply comm.EmailReply
	if err := json.Unmarshal(res.Data, &reply); err != nil {
		return "", &DeliveryError{Attempts: 1, Err: err}
	}
	if reply.Error != "" {
		return "", &DeliveryError{Attempts: reply.Attempts, Err: errors.New(reply.Error)}
	}
	if reply.ID == "" {
		return "", &DeliveryError{Attempts: reply.Attempts, Err: ErrNoDeliveryID}
	}
	return reply.ID, nil
}
