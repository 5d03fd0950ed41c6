package repositories

import (
	"context"
	"errors"

	"github.com/upb/coffee-shop/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a write violates a unique constraint
	ErrDuplicate = errors.New("record already exists")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// DrinkRepository handles drink data operations
type DrinkRepository interface {
	// List retrieves all drinks ordered by ID
	List(ctx context.Context) ([]*models.Drink, error)

	// GetByID retrieves a drink by ID, returning ErrNotFound if absent
	GetByID(ctx context.Context, id int64) (*models.Drink, error)

	// Create inserts a drink and sets its ID
	Create(ctx context.Context, drink *models.Drink) error

	// Update saves the drink's title and recipe
	Update(ctx context.Context, drink *models.Drink) error

	// Delete removes a drink, returning ErrNotFound if absent
	Delete(ctx context.Context, id int64) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) DrinkRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Drinks DrinkRepository
}
