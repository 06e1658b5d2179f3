package integrations

import (
	"context"

	"github.com/dmitrijs2005/selva/internal/server/models"
)

type Repository interface {
	// NextID reserves an id before the row exists so the API token can be
	// derived from it.
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, in *models.ExternalIntegration) error
	GetByID(ctx context.Context, id int64) (*models.ExternalIntegration, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.ExternalIntegration, error)
	// Update stores name and template; a nil Logo keeps the stored logo.
	Update(ctx context.Context, in *models.ExternalIntegration) error
	SetTokenHash(ctx context.Context, id int64, hash []byte) error
	Delete(ctx context.Context, id int64) error
	ListOverview(ctx context.Context, userID int64) ([]models.IntegrationOverview, error)
	GetLogo(ctx context.Context, id int64) ([]byte, error)
}
