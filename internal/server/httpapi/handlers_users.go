package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func bindCredentials(c *gin.Context) (*credentialsRequest, error) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorMalformedInput, err)
	}
	return &req, nil
}

func (s *Server) handleRegister(c *gin.Context) {
	req, err := bindCredentials(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	u, err := s.svc.Users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userResponse{ID: u.ID, Username: u.Username, Role: u.Role})
}

func (s *Server) handleLogin(c *gin.Context) {
	req, err := bindCredentials(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	token, err := s.svc.Users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{AccessToken: token})
}

func (s *Server) handleDeleteMe(c *gin.Context) {
	if err := s.svc.Users.Delete(c.Request.Context(), userID(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
