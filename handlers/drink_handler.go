package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/upb/coffee-shop/auth"
	"github.com/upb/coffee-shop/middleware"
	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/utils"
	"go.uber.org/zap"
)

// CreateDrinkRequest represents a request to add a drink
type CreateDrinkRequest struct {
	Title  string          `json:"title" validate:"required,max=80"`
	Recipe json.RawMessage `json:"recipe" validate:"required"`
}

// UpdateDrinkRequest represents a partial drink update
type UpdateDrinkRequest struct {
	Title  *string         `json:"title,omitempty" validate:"omitempty,max=80"`
	Recipe json.RawMessage `json:"recipe,omitempty"`
}

// DrinkService defines the drink operations used by the handler
type DrinkService interface {
	ListDrinks(ctx context.Context) ([]*models.Drink, error)
	GetDrink(ctx context.Context, id int64) (*models.Drink, error)
	CreateDrink(ctx context.Context, title string, recipe models.Recipe) (*models.Drink, error)
	UpdateDrink(ctx context.Context, id int64, title *string, recipe models.Recipe) (*models.Drink, error)
	DeleteDrink(ctx context.Context, id int64) error
}

// DrinkHandler handles drink-related HTTP requests
type DrinkHandler struct {
	service DrinkService
	logger  *zap.Logger
}

// NewDrinkHandler creates a new DrinkHandler
func NewDrinkHandler(service DrinkService, logger *zap.Logger) *DrinkHandler {
	return &DrinkHandler{
		service: service,
		logger:  logger,
	}
}

// HandleListDrinks handles GET /drinks
func (h *DrinkHandler) HandleListDrinks(w http.ResponseWriter, r *http.Request) {
	drinks, err := h.service.ListDrinks(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	short := make([]models.ShortDrink, 0, len(drinks))
	for _, d := range drinks {
		short = append(short, d.Short())
	}

	h.write(w, map[string]interface{}{"drinks": short})
}

// HandleGetDrink handles GET /drinks/{id}
func (h *DrinkHandler) HandleGetDrink(w http.ResponseWriter, r *http.Request) {
	id, ok := drinkID(w, r)
	if !ok {
		return
	}

	drink, err := h.service.GetDrink(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.write(w, map[string]interface{}{"drink": drink.Short()})
}

// HandleListDrinkDetails handles GET /drinks-detail
func (h *DrinkHandler) HandleListDrinkDetails(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	drinks, err := h.service.ListDrinks(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	long := make([]models.LongDrink, 0, len(drinks))
	for _, d := range drinks {
		long = append(long, d.Long())
	}

	h.logger.Debug("listed drink details",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("sub", claims.Subject),
		zap.Int("count", len(long)))

	h.write(w, map[string]interface{}{"drinks": long})
}

// HandleCreateDrink handles POST /drinks
func (h *DrinkHandler) HandleCreateDrink(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req CreateDrinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	recipe, err := models.ParseRecipe(req.Recipe)
	if err != nil {
		h.writeInvalidRecipe(w, requestID, err)
		return
	}

	drink, err := h.service.CreateDrink(ctx, req.Title, recipe)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("drink created",
		zap.String("request_id", requestID),
		zap.String("sub", claims.Subject),
		zap.Int64("drink_id", drink.ID))

	h.write(w, map[string]interface{}{"drinks": []models.LongDrink{drink.Long()}})
}

// HandleUpdateDrink handles PATCH /drinks/{id}
func (h *DrinkHandler) HandleUpdateDrink(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := drinkID(w, r)
	if !ok {
		return
	}

	var req UpdateDrinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	var recipe models.Recipe
	if len(req.Recipe) > 0 && string(req.Recipe) != "null" {
		parsed, err := models.ParseRecipe(req.Recipe)
		if err != nil {
			h.writeInvalidRecipe(w, requestID, err)
			return
		}
		recipe = parsed
	}

	drink, err := h.service.UpdateDrink(ctx, id, req.Title, recipe)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("drink updated",
		zap.String("request_id", requestID),
		zap.String("sub", claims.Subject),
		zap.Int64("drink_id", id))

	h.write(w, map[string]interface{}{"drinks": []models.LongDrink{drink.Long()}})
}

// HandleDeleteDrink handles DELETE /drinks/{id}
func (h *DrinkHandler) HandleDeleteDrink(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id, ok := drinkID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteDrink(r.Context(), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("drink deleted",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("sub", claims.Subject),
		zap.Int64("drink_id", id))

	h.write(w, map[string]interface{}{"delete": id})
}

func (h *DrinkHandler) write(w http.ResponseWriter, fields map[string]interface{}) {
	if err := utils.WriteSuccess(w, fields); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *DrinkHandler) writeInvalidRecipe(w http.ResponseWriter, requestID string, err error) {
	h.logger.Warn("invalid recipe",
		zap.String("request_id", requestID),
		zap.Error(err))
	_ = utils.WriteUnprocessable(w, utils.MessageUnprocessable, map[string]interface{}{
		"recipe": err.Error(),
	})
}

// drinkID parses the {id} URL parameter. Non-numeric ids are unknown resources.
func drinkID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		_ = utils.WriteNotFound(w, "")
		return 0, false
	}
	return id, true
}
