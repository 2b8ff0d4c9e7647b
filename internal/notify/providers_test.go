package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeTwilio struct {
	params []*openapi.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(p *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioSender(t *testing.T) {
	api := &fakeTwilio{}
	s := &TwilioSender{api: api, smsFrom: "+15550001", whatsappFrom: "+15550002"}

	require.NoError(t, s.Send(context.Background(), Message{Channel: ChannelSMS, To: "+23052341234", Body: "hi"}))
	require.NoError(t, s.Send(context.Background(), Message{Channel: ChannelWhatsApp, To: "+23052341234", Body: "hi"}))

	require.Len(t, api.params, 2)
	assert.Equal(t, "+23052341234", *api.params[0].To)
	assert.Equal(t, "+15550001", *api.params[0].From)
	assert.Equal(t, "whatsapp:+23052341234", *api.params[1].To)
	assert.Equal(t, "whatsapp:+15550002", *api.params[1].From)
	assert.Equal(t, "hi", *api.params[1].Body)

	assert.Error(t, s.Send(context.Background(), Message{Channel: ChannelEmail, To: "x@example.com"}))

	api.err = errors.New("21211 invalid To number")
	err := s.Send(context.Background(), Message{Channel: ChannelSMS, To: "+230", Body: "hi"})
	assert.ErrorContains(t, err, "invalid To number")
}

func TestTwilioSenderSkipsCanceledContext(t *testing.T) {
	api := &fakeTwilio{}
	s := &TwilioSender{api: api, smsFrom: "+15550001"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, Message{Channel: ChannelSMS, To: "+23052341234", Body: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.params)
}

func TestSendGridSender(t *testing.T) {
	var got map[string]any
	status := http.StatusAccepted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	s := newSendGridSender("sg-key", srv.URL, "Attendance Office", "office@example.com")
	err := s.Send(context.Background(), Message{Channel: ChannelEmail, To: "p@example.com", Subject: "Attendance notice", Body: "hello"})
	require.NoError(t, err)

	from := got["from"].(map[string]any)
	assert.Equal(t, "office@example.com", from["email"])
	pers := got["personalizations"].([]any)[0].(map[string]any)
	assert.Equal(t, "Attendance notice", pers["subject"])
	to := pers["to"].([]any)[0].(map[string]any)
	assert.Equal(t, "p@example.com", to["email"])

	status = http.StatusBadRequest
	err = s.Send(context.Background(), Message{Channel: ChannelEmail, To: "p@example.com", Body: "hello"})
	assert.ErrorContains(t, err, "status 400")

	assert.Error(t, s.Send(context.Background(), Message{Channel: ChannelSMS, To: "+230"}))
}

func TestConsoleSender(t *testing.T) {
	s := NewConsoleSender(zerolog.Nop())
	require.NoError(t, s.Send(context.Background(), Message{Channel: ChannelSMS, To: "+23052341234", Body: "hi"}))
	assert.Error(t, s.Send(context.Background(), Message{Channel: ChannelSMS}))
	assert.Len(t, s.Sent(), 1)
}
