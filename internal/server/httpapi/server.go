// Package httpapi is the HTTP transport of selva: routes, authentication
// middleware, multipart decoding and the JSON shapes of every response.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/selva/internal/logging"
	"github.com/dmitrijs2005/selva/internal/server/auth"
	"github.com/dmitrijs2005/selva/internal/server/download"
	"github.com/dmitrijs2005/selva/internal/server/forms"
	"github.com/dmitrijs2005/selva/internal/server/metrics"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/dmitrijs2005/selva/internal/server/resolver"
	"github.com/dmitrijs2005/selva/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(token string) (*auth.Claims, error)
	Delete(ctx context.Context, userID int64) error
}

type BaseProfileService interface {
	Get(ctx context.Context, userID int64) (*services.BaseProfileView, error)
	Save(ctx context.Context, userID int64, parts []forms.Part) (*models.BaseProfile, error)
}

type IntegrationService interface {
	Create(ctx context.Context, parts []forms.Part) (*services.CreatedIntegration, error)
	Update(ctx context.Context, id int64, parts []forms.Part) (*models.ExternalIntegration, error)
	RotateToken(ctx context.Context, id int64) (string, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, userID int64) ([]models.IntegrationOverview, error)
	Logo(ctx context.Context, id int64) ([]byte, error)
	AuthenticateToken(ctx context.Context, token string) (int64, error)
}

type ExternalProfileService interface {
	Create(ctx context.Context, userID, integrationID int64) (int64, error)
	Get(ctx context.Context, userID, profileID int64) (*models.ExternalProfileDetails, error)
	Save(ctx context.Context, userID, profileID int64, parts []forms.Part) (*models.ExternalProfile, error)
	Delete(ctx context.Context, userID, profileID int64) error
}

type ProfileAPIService interface {
	FetchResolvedProfile(ctx context.Context, userID, integrationID int64) (*resolver.Result, error)
}

type FileBroker interface {
	Consume(ctx context.Context, token string) (*download.File, error)
}

// Services groups what the handlers call into.
type Services struct {
	Users            UserService
	BaseProfiles     BaseProfileService
	Integrations     IntegrationService
	ExternalProfiles ExternalProfileService
	ProfileAPI       ProfileAPIService
	Downloads        FileBroker
}

type Server struct {
	address       string
	svc           Services
	metrics       *metrics.Recorder
	logger        logging.Logger
	maxUploadSize int64
	engine        *gin.Engine
}

func NewServer(address string, l logging.Logger, svc Services, rec *metrics.Recorder, maxUploadSize int64) *Server {
	s := &Server{
		address:       address,
		svc:           svc,
		metrics:       rec,
		logger:        l.With("module", "http_server"),
		maxUploadSize: maxUploadSize,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/file/:token", s.handleDownload)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/users", s.handleRegister)
		v1.POST("/login", s.handleLogin)
		v1.GET("/integrations/:id/logo", s.handleLogo)

		user := v1.Group("")
		user.Use(s.userAuth())
		{
			user.DELETE("/users/me", s.handleDeleteMe)

			user.GET("/profile", s.handleGetProfile)
			user.POST("/profile", s.handleSaveProfile)

			user.GET("/integrations", s.handleListIntegrations)

			user.POST("/external-profiles", s.handleCreateExternalProfile)
			user.GET("/external-profiles/:id", s.handleGetExternalProfile)
			user.POST("/external-profiles/:id", s.handleSaveExternalProfile)
			user.DELETE("/external-profiles/:id", s.handleDeleteExternalProfile)
		}

		admin := v1.Group("/integrations")
		admin.Use(s.userAuth(), adminOnly())
		{
			admin.POST("", s.handleCreateIntegration)
			admin.PUT("/:id", s.handleUpdateIntegration)
			admin.DELETE("/:id", s.handleDeleteIntegration)
			admin.POST("/:id/token", s.handleRotateToken)
		}

		api := v1.Group("/user-profile")
		api.Use(s.integrationAuth())
		{
			api.GET("/:userId", s.handleFetchResolvedProfile)
		}
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
