// Package app wires configuration, logging, the identity provider, the
// record stores and the CORS collaborator into the account deletion
// handler, and runs it behind an HTTP server with graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/patric-chuzhbe/userpurge/internal/awsclient"
	"github.com/patric-chuzhbe/userpurge/internal/config"
	"github.com/patric-chuzhbe/userpurge/internal/cors"
	"github.com/patric-chuzhbe/userpurge/internal/db/dynamodb"
	"github.com/patric-chuzhbe/userpurge/internal/db/memorystorage"
	"github.com/patric-chuzhbe/userpurge/internal/db/postgresdb"
	"github.com/patric-chuzhbe/userpurge/internal/identity"
	"github.com/patric-chuzhbe/userpurge/internal/logger"
	"github.com/patric-chuzhbe/userpurge/internal/models"
	"github.com/patric-chuzhbe/userpurge/internal/router"
	"github.com/patric-chuzhbe/userpurge/internal/service"
)

const shutdownTimeout = 10 * time.Second

type identityProvider interface {
	DeleteUser(ctx context.Context, username string) error
}

type storage interface {
	DeleteUser(ctx context.Context, email string) error
	FindByOwner(ctx context.Context, email string) ([]models.DependentRecord, error)
	DeleteRecord(ctx context.Context, record models.DependentRecord) error
	Close() error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// App holds the configured deletion handler and the resources behind it.
type App struct {
	cfg     *config.Config
	db      storage
	handler *router.Router
}

// Option tunes New.
type Option func(*options)

type options struct {
	configOptions []config.InitOption
	loggerOptions []logger.InitOption
}

// WithConfigOptions forwards opts to config.New.
func WithConfigOptions(opts ...config.InitOption) Option {
	return func(o *options) {
		o.configOptions = append(o.configOptions, opts...)
	}
}

// WithLoggerOptions forwards opts to logger.Init.
func WithLoggerOptions(opts ...logger.InitOption) Option {
	return func(o *options) {
		o.loggerOptions = append(o.loggerOptions, opts...)
	}
}

// New loads the configuration and builds every collaborator. A missing
// identity pool id fails here, before any request is served.
func New(ctx context.Context, optionsProto ...Option) (*App, error) {
	opts := &options{}
	for _, protoOption := range optionsProto {
		protoOption(opts)
	}

	cfg, err := config.New(opts.configOptions...)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(cfg.LogLevel, opts.loggerOptions...); err != nil {
		return nil, err
	}

	return NewWithConfig(ctx, cfg)
}

// NewWithConfig builds the App from an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{cfg: cfg}

	var awsCfg aws.Config
	if needsAWS(cfg) {
		loaded, err := awsclient.Load(ctx, cfg.AWSRegion, cfg.AWSEndpointURL)
		if err != nil {
			return nil, err
		}
		awsCfg = loaded
	}

	idp, err := getIdentityByType(cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(ctx, cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	svc := service.New(idp, app.db, app.db, service.WithMaxParallelDeletes(cfg.MaxParallelDeletes))

	var routerOpts []router.Option
	if p, ok := app.db.(pinger); ok {
		routerOpts = append(routerOpts, router.WithPinger(p))
	}
	app.handler = router.NewRouter(svc, cors.WithFallback(getHeaderProvider(cfg, awsCfg)), routerOpts...)

	return app, nil
}

// Handler returns the transport-neutral deletion handler.
func (a *App) Handler() *router.Router {
	return a.handler
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
// Storage stays open until Close.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.handler.Mux(),
	}

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr, "storage", a.cfg.StorageBackend)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return nil

	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close releases storage and flushes the logger.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Log.Errorw("closing storage", "error", err)
		}
	}
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func needsAWS(cfg *config.Config) bool {
	return cfg.IdentityBackend == "cognito" ||
		cfg.StorageBackend == "dynamodb" ||
		cfg.CORSFunctionName != ""
}

func getAvailableIdentityType(cfg *config.Config) int {
	switch cfg.IdentityBackend {
	case "cognito":
		return models.IdentityTypeCognito
	case "memory":
		return models.IdentityTypeMemory
	}

	return models.IdentityTypeUnknown
}

func getIdentityByType(cfg *config.Config, awsCfg aws.Config) (identityProvider, error) {
	switch getAvailableIdentityType(cfg) {
	case models.IdentityTypeCognito:
		return identity.NewCognitoFromConfig(awsCfg, cfg.UserPoolID), nil
	case models.IdentityTypeMemory:
		return identity.NewMemory(), nil
	}

	return nil, fmt.Errorf("unknown identity backend %q", cfg.IdentityBackend)
}

func getAvailableStorageType(cfg *config.Config) int {
	switch cfg.StorageBackend {
	case "dynamodb":
		return models.StorageTypeDynamoDB
	case "postgres":
		return models.StorageTypePostgresql
	case "memory":
		return models.StorageTypeMemory
	}

	return models.StorageTypeUnknown
}

func getStorageByType(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeDynamoDB:
		return dynamodb.NewFromConfig(awsCfg, cfg.UsersTableName, cfg.UsersKeyName, dynamodb.ConversationSchema{
			TableName:      cfg.ConversationsTableName,
			IndexName:      cfg.ConversationsIndexName,
			OwnerAttribute: cfg.ConversationsOwnerAttribute,
			PartitionKey:   cfg.ConversationsPartitionKey,
			SortKey:        cfg.ConversationsSortKey,
		}), nil

	case models.StorageTypePostgresql:
		return postgresdb.New(ctx, cfg.DatabaseDSN, cfg.DBConnectionTimeout, cfg.MigrationsDir)

	case models.StorageTypeMemory:
		return memorystorage.New(), nil
	}

	return nil, errors.New("unknown storage type")
}

func getHeaderProvider(cfg *config.Config, awsCfg aws.Config) cors.HeaderProvider {
	switch {
	case cfg.CORSFunctionName != "":
		return cors.NewLambdaProviderFromConfig(awsCfg, cfg.CORSFunctionName)
	case cfg.CORSServiceURL != "":
		return cors.NewHTTPProvider(cfg.CORSServiceURL, cfg.CORSTimeout)
	}

	return nil
}
