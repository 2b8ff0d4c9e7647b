package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/notify"
	"attendtrack/internal/queue"
)

func (s *Server) sendNotifications(c *gin.Context) {
	var req notify.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "studentIds must list at least one student")
		return
	}
	out, err := s.Notify.Send(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(singleStatus(out), out)
}

// singleStatus surfaces the outcome of a one-student dispatch as the HTTP
// status. Batches always report 200 with per-student detail.
func singleStatus(out notify.BatchResult) int {
	if out.Total != 1 {
		return http.StatusOK
	}
	r := out.Results[0]
	switch {
	case r.Success:
		return http.StatusOK
	case r.Reason == notify.ReasonStudentNotFound:
		return http.StatusNotFound
	case r.NoContact:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) notifyAbsentees(c *gin.Context) {
	var req notify.AbsenteesRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err.Error())
		return
	}
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if _, err := notify.ParseChannel(req.Channel); err != nil {
			s.fail(c, err)
			return
		}
		if _, err := s.date(req.Date); err != nil {
			badRequest(c, err.Error())
			return
		}
		s.enqueue(c, queue.TypeNotifyAbsentees, req)
		return
	}
	out, err := s.Notify.NotifyAbsentees(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) notifyAtRisk(c *gin.Context) {
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err.Error())
		return
	}
	out, err := s.Notify.NotifyAtRisk(c.Request.Context(), req.Channel)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) enqueueNotifications(c *gin.Context) {
	var req notify.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "studentIds must list at least one student")
		return
	}
	if _, err := notify.ParseChannel(req.Channel); err != nil {
		s.fail(c, err)
		return
	}
	s.enqueue(c, queue.TypeNotify, req)
}

func (s *Server) enqueue(c *gin.Context, typ string, body any) {
	if s.Queue == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "queue not configured"})
		return
	}
	msg, err := queue.NewMessage(typ, body)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Queue.Publish(c.Request.Context(), msg); err != nil {
		s.Log.Error().Err(err).Str("type", typ).Msg("queue publish failed")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": typ})
}

func (s *Server) listNotifications(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 500 {
			badRequest(c, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}
	logs, err := s.Audit.ListNotifications(c.Request.Context(), c.Query("student_id"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": logs})
}
