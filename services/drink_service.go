package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/repositories"
	"github.com/upb/coffee-shop/utils"
	"go.uber.org/zap"
)

// DrinkService implements the drink menu operations
type DrinkService struct {
	repo   repositories.DrinkRepository
	txMgr  repositories.TransactionManager
	logger *zap.Logger
}

// NewDrinkService creates a new DrinkService
func NewDrinkService(repo repositories.DrinkRepository, txMgr repositories.TransactionManager, logger *zap.Logger) *DrinkService {
	return &DrinkService{
		repo:   repo,
		txMgr:  txMgr,
		logger: logger,
	}
}

// drinkInput is validated before any write
type drinkInput struct {
	Title  string        `json:"title" validate:"required,max=80"`
	Recipe models.Recipe `json:"recipe" validate:"min=1,dive"`
}

// ListDrinks returns every drink on the menu
func (s *DrinkService) ListDrinks(ctx context.Context) ([]*models.Drink, error) {
	drinks, err := s.repo.List(ctx)
	if err != nil {
		return nil, WrapInternal("failed to list drinks", err)
	}
	return drinks, nil
}

// GetDrink returns a single drink
func (s *DrinkService) GetDrink(ctx context.Context, id int64) (*models.Drink, error) {
	drink, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepositoryError(err, id, "failed to get drink")
	}
	return drink, nil
}

// CreateDrink adds a drink to the menu
func (s *DrinkService) CreateDrink(ctx context.Context, title string, recipe models.Recipe) (*models.Drink, error) {
	title = strings.TrimSpace(title)
	if err := validateDrink(title, recipe); err != nil {
		return nil, err
	}

	drink := models.NewDrink(title, recipe)
	if err := s.repo.Create(ctx, drink); err != nil {
		return nil, s.mapRepositoryError(err, 0, "failed to create drink")
	}

	s.logger.Info("drink created",
		zap.Int64("id", drink.ID),
		zap.String("title", drink.Title))

	return drink, nil
}

// UpdateDrink applies a partial update to an existing drink.
// A nil or blank title and an empty recipe keep the current values.
func (s *DrinkService) UpdateDrink(ctx context.Context, id int64, title *string, recipe models.Recipe) (*models.Drink, error) {
	drink, err := WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Drink, error) {
		repo := s.repo.WithTx(tx)

		drink, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, s.mapRepositoryError(err, id, "failed to load drink")
		}

		if title != nil {
			if t := strings.TrimSpace(*title); t != "" {
				drink.Title = t
			}
		}
		if len(recipe) > 0 {
			drink.Recipe = recipe
		}

		if err := validateDrink(drink.Title, drink.Recipe); err != nil {
			return nil, err
		}

		if err := repo.Update(ctx, drink); err != nil {
			return nil, s.mapRepositoryError(err, id, "failed to update drink")
		}
		return drink, nil
	})
	if err != nil {
		var domainErr *DomainError
		if !errors.As(err, &domainErr) {
			return nil, WrapInternal("failed to update drink", err)
		}
		return nil, err
	}

	s.logger.Info("drink updated", zap.Int64("id", id))
	return drink, nil
}

// DeleteDrink removes a drink from the menu
func (s *DrinkService) DeleteDrink(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapRepositoryError(err, id, "failed to delete drink")
	}

	s.logger.Info("drink deleted", zap.Int64("id", id))
	return nil
}

func validateDrink(title string, recipe models.Recipe) error {
	err := utils.ValidateStruct(&drinkInput{Title: title, Recipe: recipe})
	if err == nil {
		return nil
	}

	domainErr := NewDomainError(ErrorTypeValidation, "invalid drink", err)
	for field, msg := range utils.GetValidationFields(err) {
		domainErr.WithDetail(field, msg)
	}
	return domainErr
}

func (s *DrinkService) mapRepositoryError(err error, id int64, message string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return NewDomainError(ErrorTypeNotFound, fmt.Sprintf("Drink #%d Not Found", id), err)
	case errors.Is(err, repositories.ErrDuplicate):
		return NewDomainError(ErrorTypeConflict, "A drink with this title already exists", err)
	default:
		s.logger.Error(message, zap.Int64("id", id), zap.Error(err))
		return WrapInternal(message, err)
	}
}
