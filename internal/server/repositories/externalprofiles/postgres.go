package externalprofiles

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

// Create inserts a private profile for the user's base profile. A second
// profile for the same integration yields common.ErrorAlreadyExists; a
// missing base profile or integration yields common.ErrorNotFound.
func (r *PostgresRepository) Create(ctx context.Context, userID, integrationID int64, fm fields.Map) (int64, error) {
	doc, err := fields.Marshal(fm)
	if err != nil {
		return 0, fmt.Errorf("encode fields: %w", err)
	}

	query := `
		INSERT INTO external_profiles (base_profile_id, external_integration_id, is_public, fields)
		SELECT bp.id, $2, FALSE, $3 FROM base_profiles bp WHERE bp.user_id = $1
		RETURNING id
	`
	var id int64
	err = r.db.QueryRowContext(ctx, query, userID, integrationID, string(doc)).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, sql.ErrNoRows), dbx.IsForeignKeyViolation(err):
		return 0, common.ErrorNotFound
	case dbx.IsUniqueViolation(err):
		return 0, common.ErrorAlreadyExists
	default:
		return 0, fmt.Errorf("db error: %w", err)
	}
}

const selectProfile = `
		SELECT ep.id, ep.base_profile_id, ep.external_integration_id, ep.is_public, ep.fields
		FROM external_profiles ep
		JOIN base_profiles bp ON bp.id = ep.base_profile_id
		WHERE ep.id = $1 AND bp.user_id = $2`

func (r *PostgresRepository) GetByID(ctx context.Context, userID, profileID int64) (*models.ExternalProfile, error) {
	return r.get(ctx, selectProfile, userID, profileID)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, userID, profileID int64) (*models.ExternalProfile, error) {
	return r.get(ctx, selectProfile+` FOR UPDATE OF ep`, userID, profileID)
}

func (r *PostgresRepository) get(ctx context.Context, query string, userID, profileID int64) (*models.ExternalProfile, error) {
	p := &models.ExternalProfile{}
	var doc []byte
	err := r.db.QueryRowContext(ctx, query, profileID, userID).
		Scan(&p.ID, &p.BaseProfileID, &p.ExternalIntegrationID, &p.IsPublic, &doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	fm, err := fields.Unmarshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode fields of external profile %d: %w", p.ID, err)
	}
	p.Fields = fm
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID int64, p *models.ExternalProfile) error {
	doc, err := fields.Marshal(p.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	query := `
		UPDATE external_profiles ep SET is_public = $1, fields = $2
		FROM base_profiles bp
		WHERE ep.id = $3 AND bp.id = ep.base_profile_id AND bp.user_id = $4
	`
	res, err := r.db.ExecContext(ctx, query, p.IsPublic, string(doc), p.ID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, profileID int64) error {
	query := `
		DELETE FROM external_profiles ep
		USING base_profiles bp
		WHERE ep.id = $1 AND bp.id = ep.base_profile_id AND bp.user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, profileID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID int64) ([]models.ProfileRow, error) {
	query := `
		SELECT ep.id, ei.id, ei.name, ep.is_public, ep.fields, bp.fields
		FROM external_profiles ep
		JOIN base_profiles bp ON bp.id = ep.base_profile_id
		JOIN external_integrations ei ON ei.id = ep.external_integration_id
		WHERE bp.user_id = $1
		ORDER BY ei.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select external profiles: %w", err)
	}
	defer rows.Close()

	var result []models.ProfileRow
	for rows.Next() {
		var (
			row              models.ProfileRow
			profDoc, baseDoc []byte
		)
		if err := rows.Scan(&row.ProfileID, &row.IntegrationID, &row.IntegrationName, &row.IsPublic, &profDoc, &baseDoc); err != nil {
			return nil, err
		}
		if row.Fields, err = fields.Unmarshal(profDoc); err != nil {
			return nil, fmt.Errorf("decode fields of external profile %d: %w", row.ProfileID, err)
		}
		if row.BaseFields, err = fields.Unmarshal(baseDoc); err != nil {
			return nil, fmt.Errorf("decode base fields of user %d: %w", userID, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
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
