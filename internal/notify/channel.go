package notify

import (
	"errors"
	"strings"
)

// Channel is a delivery medium.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

var (
	ErrNoContact      = errors.New("no contact information")
	ErrInvalidChannel = errors.New("invalid channel, expected sms, whatsapp or email")
)

// ParseChannel accepts sms, whatsapp or email. Empty means sms.
func ParseChannel(raw string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return ChannelSMS, nil
	case ChannelSMS, ChannelWhatsApp, ChannelEmail:
		return c, nil
	default:
		return "", ErrInvalidChannel
	}
}

// UsesPhone reports whether the channel delivers to a phone number.
func (c Channel) UsesPhone() bool {
	return c == ChannelSMS || c == ChannelWhatsApp
}

// NormalizePhone strips everything but digits and prefixes the country code
// unless the digits already start with it. Returns "" when no digits remain.
func NormalizePhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + digits
	}
	return "+" + digits
}
