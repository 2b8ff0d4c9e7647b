package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/attendance"
	"attendtrack/internal/notify"
	"attendtrack/internal/roster"
)

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// fail maps domain errors to a status and a short message. Anything unknown
// is logged and reported as a 500 without details.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		verr attendance.ValidationError
		mh   roster.MissingHeadersError
	)
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &verr), errors.As(err, &mh),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, notify.ErrInvalidChannel),
		errors.Is(err, roster.ErrUnsupportedFormat),
		errors.Is(err, roster.ErrNoValidRows):
		badRequest(c, err.Error())
	default:
		_ = c.Error(err)
		s.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
