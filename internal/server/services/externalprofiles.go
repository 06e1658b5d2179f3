package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/selva/internal/dbx"
	"github.com/dmitrijs2005/selva/internal/logging"
	"github.com/dmitrijs2005/selva/internal/server/formfields"
	"github.com/dmitrijs2005/selva/internal/server/forms"
	"github.com/dmitrijs2005/selva/internal/server/metrics"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/dmitrijs2005/selva/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PartIsPublic is the form part whose presence marks a profile public.
const PartIsPublic = "is-public"

type ExternalProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       *FileService
	newID       func() string
	metrics     *metrics.Recorder
	logger      logging.Logger
}

func NewExternalProfileService(db *sql.DB, m repomanager.RepositoryManager, files *FileService,
	rec *metrics.Recorder, logger logging.Logger) *ExternalProfileService {
	return &ExternalProfileService{
		db:          db,
		repomanager: m,
		files:       files,
		newID:       uuid.NewString,
		metrics:     rec,
		logger:      logger.With("module", "externalprofiles"),
	}
}

// Create starts a private profile for the integration from a snapshot of its
// template. Later template edits do not reach the profile.
func (s *ExternalProfileService) Create(ctx context.Context, userID, integrationID int64) (int64, error) {
	in, err := s.repomanager.Integrations(s.db).GetByID(ctx, integrationID)
	if err != nil {
		return 0, fmt.Errorf("error getting integration: %w", err)
	}

	id, err := s.repomanager.ExternalProfiles(s.db).Create(ctx, userID, integrationID, formfields.Snapshot(in.Template, s.newID))
	if err != nil {
		return 0, fmt.Errorf("error creating external profile: %w", err)
	}

	s.logger.Info(ctx, "external profile created", "user_id", userID, "integration_id", integrationID, "profile_id", id)
	return id, nil
}

func (s *ExternalProfileService) Get(ctx context.Context, userID, profileID int64) (*models.ExternalProfileDetails, error) {
	p, err := s.repomanager.ExternalProfiles(s.db).GetByID(ctx, userID, profileID)
	if err != nil {
		return nil, fmt.Errorf("error getting external profile: %w", err)
	}
	in, err := s.repomanager.Integrations(s.db).GetByID(ctx, p.ExternalIntegrationID)
	if err != nil {
		return nil, fmt.Errorf("error getting integration: %w", err)
	}
	base, err := s.repomanager.BaseProfiles(s.db).GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting base profile: %w", err)
	}
	return &models.ExternalProfileDetails{
		Profile:         p,
		IntegrationName: in.Name,
		BaseFields:      base.Fields,
	}, nil
}

// Save sets visibility and field values. The field set itself is fixed by
// the template snapshot taken at creation.
func (s *ExternalProfileService) Save(ctx context.Context, userID, profileID int64, parts []forms.Part) (*models.ExternalProfile, error) {
	form := forms.NewForm(parts)
	_, isPublic := form.Pop(PartIsPublic)
	groups, err := form.Groups()
	if err != nil {
		return nil, err
	}

	p, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.ExternalProfile, error) {
		repo := s.repomanager.ExternalProfiles(tx)

		p, err := repo.GetByIDForUpdate(ctx, userID, profileID)
		if err != nil {
			return nil, fmt.Errorf("error getting external profile: %w", err)
		}
		base, err := s.repomanager.BaseProfiles(tx).GetByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("error getting base profile: %w", err)
		}

		next, err := formfields.AssignValues(ctx, p.Fields, base.Fields, groups, formfields.NewBuilder(s.files.Creator(tx)))
		if err != nil {
			return nil, err
		}

		p.Fields = next
		p.IsPublic = isPublic
		if err := repo.Update(ctx, userID, p); err != nil {
			return nil, fmt.Errorf("error updating external profile: %w", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.FieldsReconciled(metrics.KindExternalProfile, 0, len(groups), 0)
	s.logger.Info(ctx, "external profile saved", "user_id", userID, "profile_id", profileID, "public", isPublic)
	return p, nil
}

func (s *ExternalProfileService) Delete(ctx context.Context, userID, profileID int64) error {
	if err := s.repomanager.ExternalProfiles(s.db).Delete(ctx, userID, profileID); err != nil {
		return fmt.Errorf("error deleting external profile: %w", err)
	}
	s.logger.Info(ctx, "external profile deleted", "user_id", userID, "profile_id", profileID)
	return nil
}
