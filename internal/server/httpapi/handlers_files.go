package httpapi

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleDownload serves a one-time download URL. Unknown, expired and
// already used tokens all answer 404.
func (s *Server) handleDownload(c *gin.Context) {
	f, err := s.svc.Downloads.Consume(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache, no-store")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	c.Data(http.StatusOK, "application/octet-stream", f.Content)
}
