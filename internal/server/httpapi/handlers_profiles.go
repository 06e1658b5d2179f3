package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/gin-gonic/gin"
)

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s %q", common.ErrorMalformedInput, name, c.Param(name))
	}
	return id, nil
}

func (s *Server) handleGetProfile(c *gin.Context) {
	view, err := s.svc.BaseProfiles.Get(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, baseProfileResponse{
		ID:     view.Profile.ID,
		Fields: newFieldsResponse(view.Profile.Fields, view.FileNames),
	})
}

func (s *Server) handleSaveProfile(c *gin.Context) {
	parts, err := s.readParts(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := s.svc.BaseProfiles.Save(ctx, userID(c), parts); err != nil {
		s.writeError(c, err)
		return
	}

	s.handleGetProfile(c)
}

type createExternalProfileRequest struct {
	IntegrationID int64 `json:"integrationId" binding:"required"`
}

func (s *Server) handleCreateExternalProfile(c *gin.Context) {
	var req createExternalProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", common.ErrorMalformedInput, err))
		return
	}

	id, err := s.svc.ExternalProfiles.Create(c.Request.Context(), userID(c), req.IntegrationID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func newExternalProfileResponse(d *models.ExternalProfileDetails) externalProfileResponse {
	return externalProfileResponse{
		ID:              d.Profile.ID,
		IntegrationID:   d.Profile.ExternalIntegrationID,
		IntegrationName: d.IntegrationName,
		IsPublic:        d.Profile.IsPublic,
		Fields:          newFieldsResponse(d.Profile.Fields, nil),
		BaseFields:      newFieldsResponse(d.BaseFields, nil),
	}
}

func (s *Server) handleGetExternalProfile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}

	d, err := s.svc.ExternalProfiles.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newExternalProfileResponse(d))
}

func (s *Server) handleSaveExternalProfile(c *gin.Context) {
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

	p, err := s.svc.ExternalProfiles.Save(c.Request.Context(), userID(c), id, parts)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, externalProfileResponse{
		ID:            p.ID,
		IntegrationID: p.ExternalIntegrationID,
		IsPublic:      p.IsPublic,
		Fields:        newFieldsResponse(p.Fields, nil),
	})
}

func (s *Server) handleDeleteExternalProfile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.svc.ExternalProfiles.Delete(c.Request.Context(), userID(c), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleFetchResolvedProfile(c *gin.Context) {
	uid, err := pathID(c, "userId")
	if err != nil {
		s.writeError(c, err)
		return
	}

	res, err := s.svc.ProfileAPI.FetchResolvedProfile(c.Request.Context(), uid, integrationID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newResolvedResponse(res))
}
