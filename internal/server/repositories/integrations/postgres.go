// Package integrations stores external integrations: their hashed API token,
// optional logo and field template.
package integrations

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

func (r *PostgresRepository) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('external_integrations_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// Create inserts the integration with the id reserved by NextID.
func (r *PostgresRepository) Create(ctx context.Context, in *models.ExternalIntegration) error {
	doc, err := fields.Marshal(in.Template.WithoutValues())
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}

	query := `
		INSERT INTO external_integrations (id, name, token, logo, profile_template)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, in.ID, in.Name, in.TokenHash, in.Logo, string(doc)); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectIntegration = `SELECT id, name, token, logo, profile_template FROM external_integrations WHERE id = $1`

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.ExternalIntegration, error) {
	return r.get(ctx, selectIntegration, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.ExternalIntegration, error) {
	return r.get(ctx, selectIntegration+` FOR UPDATE`, id)
}

func (r *PostgresRepository) get(ctx context.Context, query string, id int64) (*models.ExternalIntegration, error) {
	in := &models.ExternalIntegration{}
	var doc []byte
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&in.ID, &in.Name, &in.TokenHash, &in.Logo, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	tmpl, err := fields.Unmarshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode template of integration %d: %w", in.ID, err)
	}
	in.Template = tmpl
	return in, nil
}

func (r *PostgresRepository) Update(ctx context.Context, in *models.ExternalIntegration) error {
	doc, err := fields.Marshal(in.Template.WithoutValues())
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}

	query := `
		UPDATE external_integrations
		SET name = $1, logo = COALESCE($2, logo), profile_template = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, in.Name, in.Logo, string(doc), in.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) SetTokenHash(ctx context.Context, id int64, hash []byte) error {
	res, err := r.db.ExecContext(ctx, `UPDATE external_integrations SET token = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM external_integrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

// ListOverview lists every integration by id, with the id of the user's
// external profile for it when one exists.
func (r *PostgresRepository) ListOverview(ctx context.Context, userID int64) ([]models.IntegrationOverview, error) {
	query := `
		SELECT ei.id, ei.name, ei.logo IS NOT NULL, ep.id
		FROM external_integrations ei
		LEFT JOIN base_profiles bp ON bp.user_id = $1
		LEFT JOIN external_profiles ep
			ON ep.external_integration_id = ei.id AND ep.base_profile_id = bp.id
		ORDER BY ei.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select integrations: %w", err)
	}
	defer rows.Close()

	var result []models.IntegrationOverview
	for rows.Next() {
		var (
			item      models.IntegrationOverview
			profileID sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.HasLogo, &profileID); err != nil {
			return nil, err
		}
		if profileID.Valid {
			id := profileID.Int64
			item.ExternalProfileID = &id
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetLogo returns the logo bytes; an integration without a logo is not found.
func (r *PostgresRepository) GetLogo(ctx context.Context, id int64) ([]byte, error) {
	var logo []byte
	if err := r.db.QueryRowContext(ctx, `SELECT logo FROM external_integrations WHERE id = $1`, id).Scan(&logo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if logo == nil {
		return nil, common.ErrorNotFound
	}
	return logo, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
