package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/dbx"
	"github.com/dmitrijs2005/selva/internal/logging"
	"github.com/dmitrijs2005/selva/internal/server/auth"
	"github.com/dmitrijs2005/selva/internal/server/formfields"
	"github.com/dmitrijs2005/selva/internal/server/forms"
	"github.com/dmitrijs2005/selva/internal/server/metrics"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/dmitrijs2005/selva/internal/server/repositories/repomanager"
)

// Form parts read by integration create and update besides the template
// field groups.
const (
	PartName = "name"
	PartLogo = "logo"
)

// apiTokenBytes is the entropy of the random part of an API token.
const apiTokenBytes = 24

// CreatedIntegration carries the API token, which is only ever shown once.
type CreatedIntegration struct {
	ID    int64
	Token string
}

type IntegrationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	reconciler  *formfields.Reconciler
	metrics     *metrics.Recorder
	logger      logging.Logger
}

func NewIntegrationService(db *sql.DB, m repomanager.RepositoryManager, reconciler *formfields.Reconciler,
	rec *metrics.Recorder, logger logging.Logger) *IntegrationService {
	return &IntegrationService{
		db:          db,
		repomanager: m,
		reconciler:  reconciler,
		metrics:     rec,
		logger:      logger.With("module", "integrations"),
	}
}

type integrationForm struct {
	name   string
	logo   []byte
	groups []forms.Group
}

func parseIntegrationForm(parts []forms.Part) (*integrationForm, error) {
	form := forms.NewForm(parts)
	out := &integrationForm{}

	if p, ok := form.Pop(PartName); ok {
		out.name = strings.TrimSpace(p.Text())
	}
	if p, ok := form.Pop(PartLogo); ok && !p.IsEmpty() {
		out.logo = p.Content
	}

	groups, err := form.Groups()
	if err != nil {
		return nil, err
	}
	out.groups = groups
	return out, nil
}

// Create registers an integration and returns its API token. The id is
// reserved first since the token embeds it.
func (s *IntegrationService) Create(ctx context.Context, parts []forms.Part) (*CreatedIntegration, error) {
	f, err := parseIntegrationForm(parts)
	if err != nil {
		return nil, err
	}
	if f.name == "" {
		return nil, fmt.Errorf("%w: empty integration name", common.ErrorMalformedInput)
	}

	template, err := s.reconciler.ReconcileTemplate(ctx, nil, f.groups)
	if err != nil {
		return nil, err
	}

	created, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*CreatedIntegration, error) {
		repo := s.repomanager.Integrations(tx)

		id, err := repo.NextID(ctx)
		if err != nil {
			return nil, fmt.Errorf("error reserving integration id: %w", err)
		}
		token, hash, err := newAPIToken(id)
		if err != nil {
			return nil, err
		}

		err = repo.Create(ctx, &models.ExternalIntegration{
			ID:        id,
			Name:      f.name,
			TokenHash: hash,
			Logo:      f.logo,
			Template:  template,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating integration: %w", err)
		}
		return &CreatedIntegration{ID: id, Token: token}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.FieldsReconciled(metrics.KindTemplate, len(template), 0, 0)
	s.logger.Info(ctx, "integration created", "integration_id", created.ID, "fields", len(template))
	return created, nil
}

// Update reconciles the template and renames the integration. A missing
// name keeps the current one, a missing logo keeps the stored logo.
// Existing external profiles are not touched.
func (s *IntegrationService) Update(ctx context.Context, id int64, parts []forms.Part) (*models.ExternalIntegration, error) {
	f, err := parseIntegrationForm(parts)
	if err != nil {
		return nil, err
	}

	var summary formfields.Summary
	in, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.ExternalIntegration, error) {
		repo := s.repomanager.Integrations(tx)

		in, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("error getting integration: %w", err)
		}

		template, err := s.reconciler.ReconcileTemplate(ctx, in.Template, f.groups)
		if err != nil {
			return nil, err
		}
		summary = formfields.Summarize(in.Template, template)

		in.Template = template
		if f.name != "" {
			in.Name = f.name
		}
		if f.logo != nil {
			in.Logo = f.logo
		}
		if err := repo.Update(ctx, in); err != nil {
			return nil, fmt.Errorf("error updating integration: %w", err)
		}
		return in, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.FieldsReconciled(metrics.KindTemplate, summary.Created, summary.Updated, summary.Deleted)
	s.logger.Info(ctx, "integration updated", "integration_id", id, "fields", len(in.Template))
	return in, nil
}

// RotateToken replaces the API token; the old one stops working at once.
func (s *IntegrationService) RotateToken(ctx context.Context, id int64) (string, error) {
	token, hash, err := newAPIToken(id)
	if err != nil {
		return "", err
	}
	if err := s.repomanager.Integrations(s.db).SetTokenHash(ctx, id, hash); err != nil {
		return "", fmt.Errorf("error rotating token: %w", err)
	}
	s.logger.Info(ctx, "integration token rotated", "integration_id", id)
	return token, nil
}

func (s *IntegrationService) Delete(ctx context.Context, id int64) error {
	if err := s.repomanager.Integrations(s.db).Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting integration: %w", err)
	}
	s.logger.Info(ctx, "integration deleted", "integration_id", id)
	return nil
}

func (s *IntegrationService) Get(ctx context.Context, id int64) (*models.ExternalIntegration, error) {
	in, err := s.repomanager.Integrations(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting integration: %w", err)
	}
	return in, nil
}

// List returns every integration along with the user's profile for it.
func (s *IntegrationService) List(ctx context.Context, userID int64) ([]models.IntegrationOverview, error) {
	list, err := s.repomanager.Integrations(s.db).ListOverview(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing integrations: %w", err)
	}
	return list, nil
}

func (s *IntegrationService) Logo(ctx context.Context, id int64) ([]byte, error) {
	return s.repomanager.Integrations(s.db).GetLogo(ctx, id)
}

// AuthenticateToken returns the id of the integration owning token. Any
// failure other than a storage error is common.ErrorUnauthorized.
func (s *IntegrationService) AuthenticateToken(ctx context.Context, token string) (int64, error) {
	id, err := tokenID(token)
	if err != nil {
		return 0, common.ErrorUnauthorized
	}

	in, err := s.repomanager.Integrations(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrorUnauthorized
		}
		return 0, fmt.Errorf("error getting integration: %w", err)
	}

	if err := auth.CheckSecret(in.TokenHash, token); err != nil {
		return 0, common.ErrorUnauthorized
	}
	return id, nil
}

// newAPIToken mints "<id>__<random>" and its hash.
func newAPIToken(id int64) (string, []byte, error) {
	random, err := common.MakeRandHexString(apiTokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("error generating token: %w", err)
	}
	token := strconv.FormatInt(id, 10) + common.TokenSeparator + random

	hash, err := auth.HashSecret(token)
	if err != nil {
		return "", nil, err
	}
	return token, hash, nil
}

func tokenID(token string) (int64, error) {
	prefix, rest, ok := strings.Cut(token, common.TokenSeparator)
	if !ok || rest == "" {
		return 0, common.ErrInvalidToken
	}
	return strconv.ParseInt(prefix, 10, 64)
}
