package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/analytics"
)

func (s *Server) summary(c *gin.Context) {
	date, err := s.date(c.Query("date"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	sum, err := s.Analytics.Summary(c.Request.Context(), date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) classSummaries(c *gin.Context) {
	classes, err := s.Analytics.ClassSummaries(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

func (s *Server) trends(c *gin.Context) {
	flagged, _ := strconv.ParseBool(c.Query("flagged"))
	var (
		trends []analytics.Trend
		err    error
	)
	if flagged {
		trends, err = s.Analytics.NeedingAttention(c.Request.Context())
	} else {
		trends, err = s.Analytics.Trends(c.Request.Context())
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	from, to := s.Analytics.Window()
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "trends": trends})
}

func (s *Server) studentTrend(c *gin.Context) {
	t, err := s.Analytics.StudentTrend(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.Analytics.Dashboard(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) sweep(c *gin.Context) {
	n, err := s.Sweeper.Sweep(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": n})
}
