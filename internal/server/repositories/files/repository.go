package files

import (
	"context"

	"github.com/dmitrijs2005/selva/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
}
