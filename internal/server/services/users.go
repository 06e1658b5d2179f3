package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/dbx"
	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/logging"
	"github.com/dmitrijs2005/selva/internal/server/auth"
	"github.com/dmitrijs2005/selva/internal/server/config"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/dmitrijs2005/selva/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// maxPasswordLen is the longest password bcrypt accepts.
const maxPasswordLen = 72

// UserService handles registration, login and account removal.
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	newID                       func() string
	logger                      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		newID:                       uuid.NewString,
		logger:                      logger.With("module", "users"),
	}
}

// SeedFields returns the fields every new base profile starts with.
func SeedFields(newID func() string) fields.Map {
	return fields.Map{
		newID(): {Name: "Name", Order: 0, Type: fields.Text, Value: fields.TextValue("")},
		newID(): {Name: "Surname", Order: 1, Type: fields.Text, Value: fields.TextValue("")},
	}
}

// Register creates a user together with its seeded base profile.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	return s.create(ctx, username, password, models.RoleUser)
}

func (s *UserService) create(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", common.ErrorMalformedInput)
	}
	if password == "" || len(password) > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be 1 to %d bytes", common.ErrorMalformedInput, maxPasswordLen)
	}

	hash, err := auth.HashSecret(password)
	if err != nil {
		return nil, err
	}

	user, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Username:     username,
			PasswordHash: hash,
			Role:         role,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating user: %w", err)
		}
		if _, err := s.repomanager.BaseProfiles(tx).Create(ctx, u.ID, SeedFields(s.newID)); err != nil {
			return nil, fmt.Errorf("error creating base profile: %w", err)
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login checks the credentials and returns a signed access token. Unknown
// users and wrong passwords both yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "login user lookup failed", "error", err)
		return "", fmt.Errorf("%w: get user: %v", common.ErrorInternal, err)
	}
	if err := auth.CheckSecret(user.PasswordHash, password); err != nil {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "access token signing failed", "user_id", user.ID, "error", err)
		return "", fmt.Errorf("%w: sign token: %v", common.ErrorInternal, err)
	}
	return token, nil
}

// Authenticate validates an access token issued by Login.
func (s *UserService) Authenticate(token string) (*auth.Claims, error) {
	return auth.ParseToken(token, s.jwtSecret)
}

// Delete removes the user; profiles go with it.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, userID); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", userID)
	return nil
}

// EnsureAdmin creates the administrator account unless the username is
// already taken.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}
	_, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error looking up admin: %w", err)
	}

	_, err = s.create(ctx, username, password, models.RoleAdmin)
	if errors.Is(err, common.ErrorAlreadyExists) {
		return nil
	}
	return err
}
