package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/hksamms/samms-services/internal/comm"
	"github.com/hksamms/samms-services/internal/mail"
)

type Broker struct {
	Conn    *nats.Conn
	Mailer  mail.Sender
	Timeout time.Duration
}

func NewBroker(nc *nats.Conn, mailer mail.Sender, timeout time.Duration) *Broker {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Broker{
		Conn:    nc,
		Mailer:  mailer,
		Timeout: timeout,
	}
}

// handles email requests coming from the api service
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	reply := b.process(msgNat.Data)

	payload, err := json.Marshal(reply)
	if err != nil {
		log.Errorf("Error marshaling email reply %s", err)
		return
	}

	if msgNat.Reply == "" {
		// fire and forget publishers get nothing back
		return
	}
	if err := msgNat.Respond(payload); err != nil {
		log.Errorf("Error responding to %s: %s", msgNat.Reply, err)
	}
}

func (b *Broker) process(data []byte) comm.EmailReply {
	var req comm.EmailRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Errorf("Error malformed email request %s", err)
		return comm.EmailReply{Error: "malformed email request"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	id, err := b.Mailer.Send(ctx, mail.Message{
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	})
	if err != nil {
		reply := comm.EmailReply{Error: err.Error()}
		var de *mail.DeliveryError
		if errors.As(err, &de) {
			reply.Attempts = de.Attempts
		}
		log.Errorf("Error [Mailer.Send] %q to %v: %s", req.Subject, req.To, err)
		return reply
	}

	return comm.EmailReply{ID: id}
}

// consume email requests (Queue) so that only one notifier delivers each message
func (b *Broker) QueueSubscribe(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}
