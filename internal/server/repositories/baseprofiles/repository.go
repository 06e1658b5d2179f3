// Package baseprofiles stores the personal profile of each user as a field
// map document keyed by the owner.
package baseprofiles

import (
	"context"

	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID int64, fm fields.Map) (int64, error)
	GetByUserID(ctx context.Context, userID int64) (*models.BaseProfile, error)
	// GetByUserIDForUpdate also locks the row until the transaction ends.
	GetByUserIDForUpdate(ctx context.Context, userID int64) (*models.BaseProfile, error)
	UpdateFields(ctx context.Context, userID int64, fm fields.Map) error
}
