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
)

// BaseProfileView is a base profile with the names of the files its FILE
// fields point to.
type BaseProfileView struct {
	Profile   *models.BaseProfile
	FileNames map[int64]string
}

type BaseProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       *FileService
	reconciler  *formfields.Reconciler
	metrics     *metrics.Recorder
	logger      logging.Logger
}

func NewBaseProfileService(db *sql.DB, m repomanager.RepositoryManager, files *FileService,
	reconciler *formfields.Reconciler, rec *metrics.Recorder, logger logging.Logger) *BaseProfileService {
	return &BaseProfileService{
		db:          db,
		repomanager: m,
		files:       files,
		reconciler:  reconciler,
		metrics:     rec,
		logger:      logger.With("module", "baseprofiles"),
	}
}

func (s *BaseProfileService) Get(ctx context.Context, userID int64) (*BaseProfileView, error) {
	p, err := s.repomanager.BaseProfiles(s.db).GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting base profile: %w", err)
	}
	names, err := s.files.Names(ctx, p.Fields.FileIDs())
	if err != nil {
		return nil, fmt.Errorf("error getting file names: %w", err)
	}
	return &BaseProfileView{Profile: p, FileNames: names}, nil
}

// Save replaces the field set of the user's base profile with the submitted
// one. Uploaded files are stored in the same transaction as the profile.
func (s *BaseProfileService) Save(ctx context.Context, userID int64, parts []forms.Part) (*models.BaseProfile, error) {
	groups, err := forms.NewForm(parts).Groups()
	if err != nil {
		return nil, err
	}

	var summary formfields.Summary
	p, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.BaseProfile, error) {
		repo := s.repomanager.BaseProfiles(tx)

		p, err := repo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("error getting base profile: %w", err)
		}

		next, err := s.reconciler.Reconcile(ctx, p.Fields, groups, formfields.NewBuilder(s.files.Creator(tx)))
		if err != nil {
			return nil, err
		}

		if err := repo.UpdateFields(ctx, userID, next); err != nil {
			return nil, fmt.Errorf("error updating base profile: %w", err)
		}

		summary = formfields.Summarize(p.Fields, next)
		p.Fields = next
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.FieldsReconciled(metrics.KindBaseProfile, summary.Created, summary.Updated, summary.Deleted)
	s.logger.Info(ctx, "base profile saved", "user_id", userID, "fields", len(p.Fields))
	return p, nil
}
