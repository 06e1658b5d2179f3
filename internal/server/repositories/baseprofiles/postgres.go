package baseprofiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/dbx"
	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID int64, fm fields.Map) (int64, error) {
	doc, err := fields.Marshal(fm)
	if err != nil {
		return 0, fmt.Errorf("encode fields: %w", err)
	}

	query := `
		INSERT INTO base_profiles (user_id, fields)
		VALUES ($1, $2)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, userID, string(doc)).Scan(&id); err != nil {
		if dbx.IsUniqueViolation(err) {
			return 0, common.ErrorAlreadyExists
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int64) (*models.BaseProfile, error) {
	return r.get(ctx, `SELECT id, user_id, fields FROM base_profiles WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*models.BaseProfile, error) {
	return r.get(ctx, `SELECT id, user_id, fields FROM base_profiles WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *PostgresRepository) get(ctx context.Context, query string, userID int64) (*models.BaseProfile, error) {
	p := &models.BaseProfile{}
	var doc []byte
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.UserID, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	fm, err := fields.Unmarshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode fields of base profile %d: %w", p.ID, err)
	}
	p.Fields = fm
	return p, nil
}

func (r *PostgresRepository) UpdateFields(ctx context.Context, userID int64, fm fields.Map) error {
	doc, err := fields.Marshal(fm)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE base_profiles SET fields = $1 WHERE user_id = $2`, string(doc), userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
