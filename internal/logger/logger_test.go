package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestComponentTagsGlobalLogger(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	Init("debug", "json")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	l := Component("queue")
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"queue"`)

	Init("bogus", "json")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
