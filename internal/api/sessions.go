package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}
	if err := s.Login.Verify(req.Username, req.Password); err != nil {
		s.Log.Warn().Str("username", req.Username).Str("client_ip", c.ClientIP()).Msg("failed staff login")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	pair, err := s.Signer.Issue(req.Username, auth.RoleStaff)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, pair)
}

func (s *Server) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refreshToken is required")
		return
	}
	claims, err := s.Signer.Parse(req.RefreshToken, auth.KindRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	pair, err := s.Signer.Issue(claims.Subject, claims.Role)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, pair)
}
