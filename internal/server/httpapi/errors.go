package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{common.ErrorMalformedInput, http.StatusBadRequest},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrorForbidden, http.StatusForbidden},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrorAlreadyExists, http.StatusConflict},
}

// statusOf maps service errors onto HTTP statuses; unknown errors are 500.
func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError answers with the mapped status. Client errors carry their
// message; internal errors are logged and answered generically.
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "route", c.FullPath(), "error", err)
		c.JSON(status, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}
