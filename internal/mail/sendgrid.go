package mail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"

	messageIDHeader = "X-Message-Id"
)

type SendGridProvider struct {
	key    string
	host   string
	from   *sgmail.Email
	client *rest.Client
}

var _ Provider = (*SendGridProvider)(nil)

func NewSendGridProvider(key, fromName, fromEmail string) *SendGridProvider {
	return &SendGridProvider{
		key:    key,
		host:   sendgridHost,
		from:   sgmail.NewEmail(fromName, fromEmail),
		client: &rest.Client{HTTPClient: &http.Client{}},
	}
}

// WithHost points the provider at another API host.
func (p *SendGridProvider) WithHost(host string) *SendGridProvider {
	p.host = host
	return p
}

func (p *SendGridProvider) prepare(msg Message) *sgmail.SGMailV3 {
	pers := sgmail.NewPersonalization()
	pers.Subject = msg.Subject
	for _, to := range msg.To {
		pers.AddTos(sgmail.NewEmail("", to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(p.from)
	m.AddPersonalizations(pers)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTMLBody()),
	)
	return m
}

// Deliver accepts only responses carrying an X-Message-Id header.
func (p *SendGridProvider) Deliver(ctx context.Context, msg Message) (Receipt, error) {
	req := sendgrid.GetRequest(p.key, sendgridEndpoint, p.host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(p.prepare(msg))

	res, err := p.client.SendWithContext(ctx, req)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "sendgrid request")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return Receipt{}, fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}

	return Receipt{ID: headerValue(res.Headers, messageIDHeader)}, nil
}

func headerValue(headers map[string][]string, key string) string {
	if vs := http.Header(headers).Values(key); len(vs) > 0 {
		return vs[0]
	}
	return ""
}
