package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"attendtrack/internal/analytics"
	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/notify"
	"attendtrack/internal/queue"
	"attendtrack/internal/retention"
	"attendtrack/internal/roster"
)

// AuditTrail lists notification audit rows.
type AuditTrail interface {
	ListNotifications(ctx context.Context, studentID string, limit int) ([]attendance.NotificationLog, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the services behind the HTTP surface.
type Deps struct {
	Students  *attendance.Service
	Analytics *analytics.Service
	Notify    *notify.Service
	Importer  *roster.Importer
	Sweeper   *retention.Sweeper
	Audit     AuditTrail
	Queue     queue.Queue
	Signer    *auth.Signer
	Login     *auth.StaffLogin
	Health    map[string]HealthCheck
	Log       zerolog.Logger
}

// Server holds the handlers.
type Server struct {
	Deps
	now func() time.Time
}

func NewServer(d Deps) *Server {
	return &Server{Deps: d, now: time.Now}
}

// Register mounts every route on r.
func (s *Server) Register(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)
	r.POST("/v1/sessions", s.login)
	r.POST("/v1/sessions/refresh", s.refresh)

	v1 := r.Group("/v1", auth.StaffAuth(s.Signer))

	v1.GET("/students", s.listStudents)
	v1.POST("/students", s.addStudent)
	v1.POST("/students/import", s.importRoster)
	v1.GET("/students/:id", s.getStudent)
	v1.DELETE("/students/:id", s.deleteStudent)
	v1.POST("/students/:id/restore", s.restoreStudent)
	v1.DELETE("/students/:id/permanent", s.purgeStudent)
	v1.GET("/recycle-bin", s.recycleBin)
	v1.DELETE("/recycle-bin", s.emptyRecycleBin)

	v1.PUT("/attendance", s.markAttendance)
	v1.POST("/attendance/bulk", s.markClass)
	v1.GET("/attendance", s.attendanceOn)

	v1.GET("/summary", s.summary)
	v1.GET("/classes/summary", s.classSummaries)
	v1.GET("/trends", s.trends)
	v1.GET("/trends/:id", s.studentTrend)
	v1.GET("/dashboard", s.dashboard)

	v1.POST("/notifications", s.sendNotifications)
	v1.POST("/notifications/absentees", s.notifyAbsentees)
	v1.POST("/notifications/at-risk", s.notifyAtRisk)
	v1.POST("/notifications/enqueue", s.enqueueNotifications)
	v1.GET("/notifications", s.listNotifications)

	v1.POST("/retention/sweep", s.sweep)
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// date reads a YYYY-MM-DD query or body value; empty means today.
func (s *Server) date(raw string) (attendance.Date, error) {
	if raw == "" {
		return attendance.NewDate(s.now()), nil
	}
	return attendance.ParseDate(raw)
}
