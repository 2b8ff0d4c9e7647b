package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/attendance"
	"attendtrack/internal/roster"
)

const maxRosterBytes = 5 << 20

func (s *Server) listStudents(c *gin.Context) {
	students, err := s.Students.Roster(c.Request.Context(), c.Query("class"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (s *Server) addStudent(c *gin.Context) {
	var req attendance.NewStudent
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := s.Students.AddStudent(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) getStudent(c *gin.Context) {
	st, err := s.Students.Student(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) deleteStudent(c *gin.Context) {
	if err := s.Students.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) restoreStudent(c *gin.Context) {
	if err := s.Students.RestoreStudent(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) purgeStudent(c *gin.Context) {
	if err := s.Students.PurgeStudent(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) recycleBin(c *gin.Context) {
	students, err := s.Students.RecycleBin(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (s *Server) emptyRecycleBin(c *gin.Context) {
	n, err := s.Students.EmptyRecycleBin(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": n})
}

func (s *Server) importRoster(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "file field required")
		return
	}
	defer file.Close()
	body, err := io.ReadAll(io.LimitReader(file, maxRosterBytes+1))
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(body) > maxRosterBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "roster file too large"})
		return
	}

	report, err := s.Importer.Import(c.Request.Context(), header.Filename, body)
	if errors.Is(err, roster.ErrNoValidRows) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "errors": report.Errors})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}
