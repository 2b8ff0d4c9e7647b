package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/attendance"
)

type markRequest struct {
	StudentID string  `json:"studentId" binding:"required"`
	Date      string  `json:"date"`
	Status    string  `json:"status" binding:"required"`
	Notes     *string `json:"notes"`
}

type bulkMarkRequest struct {
	Date  string            `json:"date"`
	Marks []attendance.Mark `json:"marks" binding:"required,dive"`
}

func (s *Server) markAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	date, err := s.date(req.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	status, err := attendance.ParseStatus(req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	rec, err := s.Students.MarkAttendance(c.Request.Context(), req.StudentID, date, status, req.Notes)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) markClass(c *gin.Context) {
	var req bulkMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	date, err := s.date(req.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	for i := range req.Marks {
		status, err := attendance.ParseStatus(string(req.Marks[i].Status))
		if err != nil {
			s.fail(c, err)
			return
		}
		req.Marks[i].Status = status
	}
	recs, err := s.Students.MarkClass(c.Request.Context(), date, req.Marks)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "records": recs})
}

func (s *Server) attendanceOn(c *gin.Context) {
	date, err := s.date(c.Query("date"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	recs, err := s.Students.AttendanceOn(c.Request.Context(), date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "records": recs})
}
