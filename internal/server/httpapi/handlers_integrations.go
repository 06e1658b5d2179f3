package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListIntegrations(c *gin.Context) {
	list, err := s.svc.Integrations.List(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]integrationOverviewResponse, 0, len(list))
	for _, o := range list {
		out = append(out, integrationOverviewResponse{
			ID:                o.ID,
			Name:              o.Name,
			HasLogo:           o.HasLogo,
			ExternalProfileID: o.ExternalProfileID,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateIntegration(c *gin.Context) {
	parts, err := s.readParts(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	created, err := s.svc.Integrations.Create(c.Request.Context(), parts)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdIntegrationResponse{ID: created.ID, Token: created.Token})
}

func (s *Server) handleUpdateIntegration(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	parts, err := s.readParts(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	in, err := s.svc.Integrations.Update(c.Request.Context(), id, parts)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newIntegrationResponse(in))
}

func (s *Server) handleDeleteIntegration(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.svc.Integrations.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRotateToken(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}

	token, err := s.svc.Integrations.RotateToken(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, createdIntegrationResponse{ID: id, Token: token})
}

func (s *Server) handleLogo(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}

	logo, err := s.svc.Integrations.Logo(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(logo), logo)
}
