package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridEndpoint = "/v3/mail/send"

// SendGridSender delivers email.
type SendGridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendGridSender builds a sender against the public SendGrid API.
func NewSendGridSender(key, fromName, fromAddress string) *SendGridSender {
	return newSendGridSender(key, "", fromName, fromAddress)
}

// newSendGridSender lets tests point the client at another host.
func newSendGridSender(key, host, fromName, fromAddress string) *SendGridSender {
	req := sendgrid.GetRequest(key, sendgridEndpoint, host)
	req.Method = http.MethodPost
	return &SendGridSender{
		client: &sendgrid.Client{Request: req},
		from:   sgmail.NewEmail(fromName, fromAddress),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if msg.Channel != ChannelEmail {
		return fmt.Errorf("sendgrid: unsupported channel %q", msg.Channel)
	}
	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", msg.To))
	p.Subject = msg.Subject

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))

	res, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
