// Package server wires selva together: configuration, database, blob
// storage, services and the HTTP transport, and runs them until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/selva/internal/logging"
	"github.com/dmitrijs2005/selva/internal/server/blobs"
	"github.com/dmitrijs2005/selva/internal/server/config"
	"github.com/dmitrijs2005/selva/internal/server/download"
	"github.com/dmitrijs2005/selva/internal/server/formfields"
	"github.com/dmitrijs2005/selva/internal/server/httpapi"
	"github.com/dmitrijs2005/selva/internal/server/metrics"
	"github.com/dmitrijs2005/selva/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/selva/internal/server/resolver"
	"github.com/dmitrijs2005/selva/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}

	newS3Store = func(ctx context.Context, c blobs.S3Config) (blobs.Store, error) {
		return blobs.NewS3Store(ctx, c)
	}
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// NewApp opens the database, migrates it and builds every component.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app, err := newApp(ctx, c, db, rm, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) (*App, error) {
	store, err := newBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob storage init error: %w", err)
	}

	rec, err := metrics.New(nil)
	if err != nil {
		return nil, err
	}

	reconciler := formfields.NewReconciler()
	files := services.NewFileService(db, rm, store)
	broker := download.NewBroker(files, c.BaseURL, c.DownloadTokenTTL,
		download.WithMetrics(rec), download.WithLogger(logger))

	users := services.NewUserService(db, rm, c, logger)
	if err := users.EnsureAdmin(ctx, c.AdminUsername, c.AdminPassword); err != nil {
		return nil, fmt.Errorf("admin bootstrap error: %w", err)
	}

	srv := httpapi.NewServer(c.EndpointAddrHTTP, logger, httpapi.Services{
		Users:            users,
		BaseProfiles:     services.NewBaseProfileService(db, rm, files, reconciler, rec, logger),
		Integrations:     services.NewIntegrationService(db, rm, reconciler, rec, logger),
		ExternalProfiles: services.NewExternalProfileService(db, rm, files, rec, logger),
		ProfileAPI:       services.NewProfileAPIService(db, rm, resolver.New(broker)),
		Downloads:        broker,
	}, rec, c.MaxUploadSize)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobs.Store, error) {
	switch c.FileStorage {
	case config.StorageMemory:
		return blobs.NewMemoryStore(), nil
	case config.StorageS3:
		return newS3Store(ctx, blobs.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown file storage %q", c.FileStorage)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a shutdown signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
