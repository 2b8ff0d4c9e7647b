package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Message is one outbound notification addressed for a single channel.
type Message struct {
	Channel   Channel
	To        string
	Subject   string
	Body      string
	StudentID string
}

// Sender delivers messages through an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Senders maps each channel to the provider serving it.
type Senders map[Channel]Sender

// ConsoleSender logs messages instead of delivering them. Used when a
// provider is not configured.
type ConsoleSender struct {
	log  zerolog.Logger
	mu   sync.Mutex
	sent []Message
}

func NewConsoleSender(log zerolog.Logger) *ConsoleSender {
	return &ConsoleSender{log: log}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("console: empty recipient")
	}
	s.log.Info().
		Str("channel", string(msg.Channel)).
		Str("to", msg.To).
		Str("student_id", msg.StudentID).
		Str("subject", msg.Subject).
		Msg(msg.Body)
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of everything sent so far.
func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
