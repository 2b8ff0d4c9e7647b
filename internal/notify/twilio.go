package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender delivers SMS and WhatsApp messages.
type TwilioSender struct {
	api          messageCreator
	smsFrom      string
	whatsappFrom string
}

// NewTwilioSender builds a sender from account credentials and sender numbers.
func NewTwilioSender(accountSID, authToken, smsFrom, whatsappFrom string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, smsFrom: smsFrom, whatsappFrom: whatsappFrom}
}

// Send delivers one message. The twilio client takes no context, so ctx is
// only checked before the request; a call already in flight runs to the
// client's HTTP timeout.
func (s *TwilioSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	to, from := msg.To, s.smsFrom
	switch msg.Channel {
	case ChannelSMS:
	case ChannelWhatsApp:
		to, from = "whatsapp:"+msg.To, "whatsapp:"+s.whatsappFrom
	default:
		return fmt.Errorf("twilio: unsupported channel %q", msg.Channel)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(msg.Body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return fmt.Errorf("twilio: %s", *resp.ErrorMessage)
	}
	return nil
}
