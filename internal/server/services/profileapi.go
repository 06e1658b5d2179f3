package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/selva/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/selva/internal/server/resolver"
)

// ProfileAPIService serves resolved user profiles to integrations.
type ProfileAPIService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	resolver    *resolver.Resolver
}

func NewProfileAPIService(db *sql.DB, m repomanager.RepositoryManager, r *resolver.Resolver) *ProfileAPIService {
	return &ProfileAPIService{db: db, repomanager: m, resolver: r}
}

// FetchResolvedProfile returns the profiles of userID visible to
// integrationID with references and files resolved.
func (s *ProfileAPIService) FetchResolvedProfile(ctx context.Context, userID, integrationID int64) (*resolver.Result, error) {
	rows, err := s.repomanager.ExternalProfiles(s.db).ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing external profiles: %w", err)
	}
	return s.resolver.Resolve(ctx, rows, integrationID)
}
