package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/coffee-shop/config"
	"github.com/upb/coffee-shop/models"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// WrapDB wraps an already opened connection pool
func WrapDB(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     db,
		logger: logger,
	}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

const createDrinksTable = `
	CREATE TABLE IF NOT EXISTS drinks (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(80) NOT NULL UNIQUE,
		recipe TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)
`

// InitSchema creates the drinks table if it does not exist
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, createDrinksTable); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

// SeedDrink is inserted whenever the schema is reset
func SeedDrink() *models.Drink {
	return models.NewDrink("water", models.Recipe{
		{Name: "water", Color: "blue", Parts: 1},
	})
}

// ResetSchema drops and recreates the drinks table, then inserts the seed
// drink. All existing drinks are lost.
func (db *DB) ResetSchema(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema reset: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS drinks"); err != nil {
		return fmt.Errorf("failed to drop drinks table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createDrinksTable); err != nil {
		return fmt.Errorf("failed to create drinks table: %w", err)
	}

	seed := SeedDrink()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO drinks (title, recipe, created_at, updated_at) VALUES ($1, $2, $3, $4)",
		seed.Title, seed.Recipe, seed.CreatedAt, seed.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to seed drinks table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema reset: %w", err)
	}

	db.logger.Warn("drinks table reset and reseeded", zap.String("seed", seed.Title))
	return nil
}
