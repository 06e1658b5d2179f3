// Package externalprofiles stores the per-integration profiles of users.
// Every statement is qualified by the owning user id.
package externalprofiles

import (
	"context"

	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID, integrationID int64, fm fields.Map) (int64, error)
	GetByID(ctx context.Context, userID, profileID int64) (*models.ExternalProfile, error)
	GetByIDForUpdate(ctx context.Context, userID, profileID int64) (*models.ExternalProfile, error)
	Update(ctx context.Context, userID int64, p *models.ExternalProfile) error
	Delete(ctx context.Context, userID, profileID int64) error
	// ListForUser returns every external profile of the user joined with
	// its integration and the user's base profile, ordered by integration id.
	ListForUser(ctx context.Context, userID int64) ([]models.ProfileRow, error)
}
