package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/repositories"
	"go.uber.org/zap"
)

// MockDrinkRepository is a mock implementation of DrinkRepository
type MockDrinkRepository struct {
	mock.Mock
}

func (m *MockDrinkRepository) List(ctx context.Context) ([]*models.Drink, error) {
	args := m.Called(ctx)
	if drinks := args.Get(0); drinks != nil {
		return drinks.([]*models.Drink), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDrinkRepository) GetByID(ctx context.Context, id int64) (*models.Drink, error) {
	args := m.Called(ctx, id)
	if drink := args.Get(0); drink != nil {
		return drink.(*models.Drink), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDrinkRepository) Create(ctx context.Context, drink *models.Drink) error {
	args := m.Called(ctx, drink)
	return args.Error(0)
}

func (m *MockDrinkRepository) Update(ctx context.Context, drink *models.Drink) error {
	args := m.Called(ctx, drink)
	return args.Error(0)
}

func (m *MockDrinkRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDrinkRepository) WithTx(tx repositories.Transaction) repositories.DrinkRepository {
	args := m.Called(tx)
	return args.Get(0).(repositories.DrinkRepository)
}

func waterRecipe() models.Recipe {
	return models.Recipe{{Name: "water", Color: "blue", Parts: 1}}
}

func newTestDrinkService(repo *MockDrinkRepository, txMgr *MockTransactionManager) *DrinkService {
	return NewDrinkService(repo, txMgr, zap.NewNop())
}

// expectTx wires a transaction that hands the same mock repository back from WithTx
func expectTx(ctx context.Context, repo *MockDrinkRepository, txMgr *MockTransactionManager) *MockTransaction {
	tx := new(MockTransaction)
	txMgr.On("Begin", ctx).Return(tx, nil)
	tx.On("Context").Return(ctx)
	repo.On("WithTx", tx).Return(repo)
	return tx
}

func TestDrinkService_ListDrinks(t *testing.T) {
	ctx := context.Background()

	t.Run("returns drinks", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		drinks := []*models.Drink{{ID: 1, Title: "water", Recipe: waterRecipe()}}
		repo.On("List", ctx).Return(drinks, nil)

		got, err := newTestDrinkService(repo, new(MockTransactionManager)).ListDrinks(ctx)

		require.NoError(t, err)
		assert.Equal(t, drinks, got)
		repo.AssertExpectations(t)
	})

	t.Run("repository failure is internal", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		repo.On("List", ctx).Return(nil, errors.New("connection reset"))

		_, err := newTestDrinkService(repo, new(MockTransactionManager)).ListDrinks(ctx)

		assert.True(t, IsInternalError(err))
	})
}

func TestDrinkService_GetDrink(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		drink := &models.Drink{ID: 3, Title: "latte", Recipe: waterRecipe()}
		repo.On("GetByID", ctx, int64(3)).Return(drink, nil)

		got, err := newTestDrinkService(repo, new(MockTransactionManager)).GetDrink(ctx, 3)

		require.NoError(t, err)
		assert.Equal(t, drink, got)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		repo.On("GetByID", ctx, int64(99)).Return(nil, repositories.ErrNotFound)

		_, err := newTestDrinkService(repo, new(MockTransactionManager)).GetDrink(ctx, 99)

		assert.True(t, IsNotFoundError(err))
		assert.ErrorIs(t, err, ErrDrinkNotFound)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestDrinkService_CreateDrink(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and trims title", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		repo.On("Create", ctx, mock.MatchedBy(func(d *models.Drink) bool {
			return d.Title == "water" && len(d.Recipe) == 1
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Drink).ID = 7
		}).Return(nil)

		drink, err := newTestDrinkService(repo, new(MockTransactionManager)).CreateDrink(ctx, "  water ", waterRecipe())

		require.NoError(t, err)
		assert.Equal(t, int64(7), drink.ID)
		assert.Equal(t, "water", drink.Title)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate title is a conflict", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		repo.On("Create", ctx, mock.Anything).Return(repositories.ErrDuplicate)

		_, err := newTestDrinkService(repo, new(MockTransactionManager)).CreateDrink(ctx, "water", waterRecipe())

		assert.True(t, IsConflictError(err))
	})

	tests := []struct {
		name      string
		title     string
		recipe    models.Recipe
		wantField string
	}{
		{"missing title", "", waterRecipe(), "title"},
		{"blank title", "   ", waterRecipe(), "title"},
		{"title too long", strings.Repeat("a", models.MaxTitleLength+1), waterRecipe(), "title"},
		{"empty recipe", "water", models.Recipe{}, "recipe"},
		{"nil recipe", "water", nil, "recipe"},
		{"ingredient without name", "water", models.Recipe{{Color: "blue", Parts: 1}}, "recipe[0].name"},
		{"zero parts", "water", models.Recipe{{Name: "water", Color: "blue", Parts: 0}}, "recipe[0].parts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockDrinkRepository)

			_, err := newTestDrinkService(repo, new(MockTransactionManager)).CreateDrink(ctx, tt.title, tt.recipe)

			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, GetErrorDetails(err), tt.wantField)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestDrinkService_UpdateDrink(t *testing.T) {
	ctx := context.Background()
	strPtr := func(s string) *string { return &s }

	t.Run("updates title only", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		txMgr := new(MockTransactionManager)
		tx := expectTx(ctx, repo, txMgr)
		tx.On("Commit").Return(nil)

		repo.On("GetByID", ctx, int64(1)).Return(&models.Drink{ID: 1, Title: "water", Recipe: waterRecipe()}, nil)
		repo.On("Update", ctx, mock.MatchedBy(func(d *models.Drink) bool {
			return d.Title == "sparkling water" && d.Recipe[0].Name == "water"
		})).Return(nil)

		drink, err := newTestDrinkService(repo, txMgr).UpdateDrink(ctx, 1, strPtr("sparkling water"), nil)

		require.NoError(t, err)
		assert.Equal(t, "sparkling water", drink.Title)
		assert.Equal(t, waterRecipe(), drink.Recipe)
		assert.True(t, tx.committed)
		repo.AssertExpectations(t)
	})

	t.Run("blank title keeps current and replaces recipe", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		txMgr := new(MockTransactionManager)
		tx := expectTx(ctx, repo, txMgr)
		tx.On("Commit").Return(nil)

		recipe := models.Recipe{{Name: "milk", Color: "white", Parts: 2}}
		repo.On("GetByID", ctx, int64(1)).Return(&models.Drink{ID: 1, Title: "water", Recipe: waterRecipe()}, nil)
		repo.On("Update", ctx, mock.Anything).Return(nil)

		drink, err := newTestDrinkService(repo, txMgr).UpdateDrink(ctx, 1, strPtr(""), recipe)

		require.NoError(t, err)
		assert.Equal(t, "water", drink.Title)
		assert.Equal(t, recipe, drink.Recipe)
	})

	t.Run("missing drink rolls back", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		txMgr := new(MockTransactionManager)
		tx := expectTx(ctx, repo, txMgr)
		tx.On("Rollback").Return(nil)

		repo.On("GetByID", ctx, int64(42)).Return(nil, repositories.ErrNotFound)

		_, err := newTestDrinkService(repo, txMgr).UpdateDrink(ctx, 42, strPtr("tea"), nil)

		assert.True(t, IsNotFoundError(err))
		assert.True(t, tx.rolledback)
		assert.False(t, tx.committed)
	})

	t.Run("invalid recipe rolls back without writing", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		txMgr := new(MockTransactionManager)
		tx := expectTx(ctx, repo, txMgr)
		tx.On("Rollback").Return(nil)

		repo.On("GetByID", ctx, int64(1)).Return(&models.Drink{ID: 1, Title: "water", Recipe: waterRecipe()}, nil)

		_, err := newTestDrinkService(repo, txMgr).UpdateDrink(ctx, 1, nil, models.Recipe{{Name: "milk", Parts: 1}})

		assert.True(t, IsValidationError(err))
		assert.True(t, tx.rolledback)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("duplicate title is a conflict", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		txMgr := new(MockTransactionManager)
		tx := expectTx(ctx, repo, txMgr)
		tx.On("Rollback").Return(nil)

		repo.On("GetByID", ctx, int64(1)).Return(&models.Drink{ID: 1, Title: "water", Recipe: waterRecipe()}, nil)
		repo.On("Update", ctx, mock.Anything).Return(repositories.ErrDuplicate)

		_, err := newTestDrinkService(repo, txMgr).UpdateDrink(ctx, 1, strPtr("coffee"), nil)

		assert.True(t, IsConflictError(err))
	})

	t.Run("begin failure is internal", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		txMgr := new(MockTransactionManager)
		txMgr.On("Begin", ctx).Return(nil, errors.New("pool exhausted"))

		_, err := newTestDrinkService(repo, txMgr).UpdateDrink(ctx, 1, strPtr("coffee"), nil)

		assert.True(t, IsInternalError(err))
	})
}

func TestDrinkService_DeleteDrink(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		repo.On("Delete", ctx, int64(1)).Return(nil)

		err := newTestDrinkService(repo, new(MockTransactionManager)).DeleteDrink(ctx, 1)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		repo.On("Delete", ctx, int64(5)).Return(repositories.ErrNotFound)

		err := newTestDrinkService(repo, new(MockTransactionManager)).DeleteDrink(ctx, 5)

		assert.True(t, IsNotFoundError(err))
	})

	t.Run("other failures are internal", func(t *testing.T) {
		repo := new(MockDrinkRepository)
		repo.On("Delete", ctx, int64(5)).Return(errors.New("disk full"))

		err := newTestDrinkService(repo, new(MockTransactionManager)).DeleteDrink(ctx, 5)

		assert.True(t, IsInternalError(err))
	})
}
