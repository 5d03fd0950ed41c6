package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/repositories"
	"go.uber.org/zap"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// DrinkRepository implements the repositories.DrinkRepository interface
type DrinkRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewDrinkRepository creates a new drink repository
func NewDrinkRepository(db *DB, logger *zap.Logger) repositories.DrinkRepository {
	return &DrinkRepository{
		db:     db,
		logger: logger,
	}
}

func (r *DrinkRepository) executor(ctx context.Context) Executor {
	if r.tx != nil {
		return r.tx.tx
	}
	return GetExecutor(ctx, r.db)
}

// List retrieves all drinks ordered by ID
func (r *DrinkRepository) List(ctx context.Context) ([]*models.Drink, error) {
	query := `
		SELECT id, title, recipe, created_at, updated_at
		FROM drinks
		ORDER BY id
	`

	rows, err := r.executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	defer rows.Close()

	drinks := []*models.Drink{}
	for rows.Next() {
		drink := &models.Drink{}
		err := rows.Scan(
			&drink.ID,
			&drink.Title,
			&drink.Recipe,
			&drink.CreatedAt,
			&drink.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drink: %w", err)
		}
		drinks = append(drinks, drink)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drink rows: %w", err)
	}

	return drinks, nil
}

// GetByID retrieves a drink by ID
func (r *DrinkRepository) GetByID(ctx context.Context, id int64) (*models.Drink, error) {
	query := `
		SELECT id, title, recipe, created_at, updated_at
		FROM drinks
		WHERE id = $1
	`

	drink := &models.Drink{}
	err := r.executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&drink.ID,
		&drink.Title,
		&drink.Recipe,
		&drink.CreatedAt,
		&drink.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("drink %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get drink: %w", err)
	}

	return drink, nil
}

// Create inserts a drink and sets its ID
func (r *DrinkRepository) Create(ctx context.Context, drink *models.Drink) error {
	query := `
		INSERT INTO drinks (title, recipe, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.executor(ctx).QueryRowContext(ctx, query,
		drink.Title,
		drink.Recipe,
		drink.CreatedAt,
		drink.UpdatedAt,
	).Scan(&drink.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("drink %q: %w", drink.Title, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create drink: %w", err)
	}

	r.logger.Debug("drink created", zap.Int64("id", drink.ID), zap.String("title", drink.Title))
	return nil
}

// Update saves the drink's title and recipe
func (r *DrinkRepository) Update(ctx context.Context, drink *models.Drink) error {
	query := `
		UPDATE drinks
		SET title = $2, recipe = $3, updated_at = $4
		WHERE id = $1
	`

	drink.UpdatedAt = time.Now()

	result, err := r.executor(ctx).ExecContext(ctx, query,
		drink.ID,
		drink.Title,
		drink.Recipe,
		drink.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("drink %q: %w", drink.Title, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to update drink: %w", err)
	}

	if err := checkRowsAffected(result, drink.ID); err != nil {
		return err
	}

	r.logger.Debug("drink updated", zap.Int64("id", drink.ID))
	return nil
}

// Delete removes a drink
func (r *DrinkRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM drinks WHERE id = $1`

	result, err := r.executor(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete drink: %w", err)
	}

	if err := checkRowsAffected(result, id); err != nil {
		return err
	}

	r.logger.Debug("drink deleted", zap.Int64("id", id))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *DrinkRepository) WithTx(tx repositories.Transaction) repositories.DrinkRepository {
	pgTx, _ := tx.(*Transaction)
	return &DrinkRepository{
		db:     r.db,
		tx:     pgTx,
		logger: r.logger,
	}
}

func checkRowsAffected(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("drink %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
