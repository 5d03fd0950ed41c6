package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/coffee-shop/auth"
	"github.com/upb/coffee-shop/config"
	"github.com/upb/coffee-shop/repositories/postgres"
	"go.uber.org/zap/zaptest"
)

func TestNewDependencies(t *testing.T) {
	t.Run("successful initialization with all components", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig()
		logger := zaptest.NewLogger(t)

		if !isDatabaseAvailable(t, cfg) {
			t.Skip("database not available")
		}

		deps, err := NewDependencies(ctx, cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		assert.NotNil(t, deps.DB)
		assert.NotNil(t, deps.Drinks)
		assert.NotNil(t, deps.TxManager)
		assert.NotNil(t, deps.DrinkService)
		assert.NotNil(t, deps.AuthMiddleware)

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("database connection failure", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig()
		cfg.Database.Host = "invalid-host-that-does-not-exist"
		logger := zaptest.NewLogger(t)

		deps, err := NewDependencies(ctx, cfg, logger)
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize database")
	})
}

func TestNewDependenciesFromFactory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	factory := postgres.NewRepositoryFactoryFromDB(postgres.WrapDB(db, logger), logger)

	deps := NewDependenciesFromFactory(testConfig(), factory, logger)

	assert.NotNil(t, deps.Drinks)
	assert.NotNil(t, deps.TxManager)
	assert.NotNil(t, deps.DrinkService)
	assert.NotNil(t, deps.Verifier)
	assert.NotNil(t, deps.AuthMiddleware)
	assert.NotNil(t, deps.DrinkHandler)
	assert.NotNil(t, deps.HealthHandler)
	assert.Nil(t, deps.Redis)

	mock.ExpectClose()
	require.NoError(t, deps.Close(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())

	// Second close is a no-op
	assert.NoError(t, deps.Close(context.Background()))
}

func TestNewKeySetFetcher(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("no cache fetches directly", func(t *testing.T) {
		cfg := testConfig()

		fetcher, client := newKeySetFetcher(cfg, logger)

		httpFetcher, ok := fetcher.(*auth.HTTPKeySetFetcher)
		require.True(t, ok)
		assert.Equal(t, "https://coffee-test.eu.auth0.com/.well-known/jwks.json", httpFetcher.URL())
		assert.Nil(t, client)
	})

	t.Run("explicit jwks url wins", func(t *testing.T) {
		cfg := testConfig()
		cfg.Auth.JWKSURL = "http://127.0.0.1:9999/keys"

		fetcher, _ := newKeySetFetcher(cfg, logger)

		assert.Equal(t, "http://127.0.0.1:9999/keys", fetcher.(*auth.HTTPKeySetFetcher).URL())
	})

	t.Run("memory cache", func(t *testing.T) {
		cfg := testConfig()
		cfg.JWKSCache.TTL = time.Minute

		fetcher, client := newKeySetFetcher(cfg, logger)

		_, ok := fetcher.(*auth.CachingKeySetFetcher)
		assert.True(t, ok)
		assert.Nil(t, client)
	})

	t.Run("redis cache", func(t *testing.T) {
		cfg := testConfig()
		cfg.JWKSCache.TTL = time.Minute
		cfg.JWKSCache.RedisAddr = "localhost:6379"

		fetcher, client := newKeySetFetcher(cfg, logger)
		require.NotNil(t, client)
		defer client.Close()

		_, ok := fetcher.(*auth.CachingKeySetFetcher)
		assert.True(t, ok)
		assert.Equal(t, "localhost:6379", client.Options().Addr)
	})
}

// Test helpers

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            5000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{
			Host:            getEnvOrDefault("DB_HOST", "localhost"),
			Port:            5432,
			User:            getEnvOrDefault("DB_USER", "postgres"),
			Password:        getEnvOrDefault("DB_PASSWORD", "postgres"),
			Database:        getEnvOrDefault("DB_NAME", "coffee_shop_test"),
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Auth: config.AuthConfig{
			Domain:     "coffee-test.eu.auth0.com",
			Audience:   "coffee",
			Algorithms: config.SupportedAlgorithms,
		},
		JWKSCache: config.JWKSCacheConfig{
			HTTPTimeout: 2 * time.Second,
			Key:         auth.DefaultRedisKeySetKey,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}

func isDatabaseAvailable(t *testing.T, cfg *config.Config) bool {
	t.Helper()
	db, err := postgres.NewDB(cfg.Database, zaptest.NewLogger(t))
	if err != nil {
		return false
	}
	_ = db.Close()
	return true
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
