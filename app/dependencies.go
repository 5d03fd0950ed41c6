package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/upb/coffee-shop/auth"
	"github.com/upb/coffee-shop/config"
	"github.com/upb/coffee-shop/handlers"
	"github.com/upb/coffee-shop/middleware"
	"github.com/upb/coffee-shop/repositories"
	"github.com/upb/coffee-shop/repositories/postgres"
	"github.com/upb/coffee-shop/services"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Redis  *redis.Client
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Drinks    repositories.DrinkRepository
	TxManager repositories.TransactionManager

	// Services
	DrinkService *services.DrinkService

	// Auth
	KeySetFetcher  auth.KeySetFetcher
	Verifier       *auth.Verifier
	AuthMiddleware *middleware.AuthMiddleware

	// Handlers
	DrinkHandler  *handlers.DrinkHandler
	HealthHandler *handlers.HealthHandler
}

// NewDependencies connects to the database, prepares the schema, and wires
// every component on top of it.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := factory.PrepareSchema(ctx, cfg.Database.ResetOnStart); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	deps := NewDependenciesFromFactory(cfg, factory, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesFromFactory wires repositories, services, auth, and handlers
// over an already opened database.
func NewDependenciesFromFactory(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) *Dependencies {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	deps.initRepositories()
	deps.initServices()
	deps.initAuth()
	deps.initHandlers()

	return deps
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Drinks = repos.Drinks
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices() {
	d.DrinkService = services.NewDrinkService(d.Drinks, d.TxManager, d.Logger)
}

// initAuth builds the key set fetcher, the token verifier, and the guard
func (d *Dependencies) initAuth() {
	cfg := d.Config

	d.KeySetFetcher, d.Redis = newKeySetFetcher(cfg, d.Logger)

	d.Verifier = auth.NewVerifier(auth.VerifierConfig{
		Domain:     cfg.Auth.Domain,
		Audience:   cfg.Auth.Audience,
		Algorithms: cfg.Auth.Algorithms,
		Leeway:     cfg.Auth.Leeway,
	}, d.KeySetFetcher, d.Logger)

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Verifier, d.Logger, cfg.Auth.CollapseVerifyErrors)

	d.Logger.Info("token verifier initialized",
		zap.String("domain", cfg.Auth.Domain),
		zap.String("audience", cfg.Auth.Audience),
		zap.Strings("algorithms", cfg.Auth.Algorithms),
		zap.Bool("collapse_verify_errors", cfg.Auth.CollapseVerifyErrors))
}

func (d *Dependencies) initHandlers() {
	d.DrinkHandler = handlers.NewDrinkHandler(d.DrinkService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Logger)
}

// newKeySetFetcher returns the JWKS fetcher described by cfg. Without a cache
// TTL every verification fetches the key set; with one, the key set is cached
// in memory or, when REDIS_ADDR is set, in Redis. The Redis client, if any,
// is returned so it can be closed on shutdown.
func newKeySetFetcher(cfg *config.Config, logger *zap.Logger) (auth.KeySetFetcher, *redis.Client) {
	url := cfg.Auth.JWKSURL
	if url == "" {
		url = auth.JWKSURL(cfg.Auth.Domain)
	}
	httpFetcher := auth.NewHTTPKeySetFetcher(url, cfg.JWKSCache.HTTPTimeout)

	if !cfg.JWKSCache.Enabled() {
		logger.Info("jwks caching disabled", zap.String("url", url))
		return httpFetcher, nil
	}

	if !cfg.JWKSCache.UseRedis() {
		logger.Info("jwks cached in memory",
			zap.String("url", url),
			zap.Duration("ttl", cfg.JWKSCache.TTL))
		return auth.NewCachingKeySetFetcher(httpFetcher, auth.NewMemoryKeySetCache(), cfg.JWKSCache.TTL, logger), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.JWKSCache.RedisAddr,
		Password: cfg.JWKSCache.RedisPassword,
		DB:       cfg.JWKSCache.RedisDB,
	})
	cache := auth.NewRedisKeySetCache(client, cfg.JWKSCache.Key)

	logger.Info("jwks cached in redis",
		zap.String("url", url),
		zap.String("redis_addr", cfg.JWKSCache.RedisAddr),
		zap.Duration("ttl", cfg.JWKSCache.TTL))

	return auth.NewCachingKeySetFetcher(httpFetcher, cache, cfg.JWKSCache.TTL, logger), client
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
		d.Redis = nil
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
