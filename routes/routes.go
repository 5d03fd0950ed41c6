package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/coffee-shop/app"
	"github.com/upb/coffee-shop/middleware"
	"github.com/upb/coffee-shop/utils"
)

// Permissions required by the protected drink endpoints
const (
	PermissionGetDrinksDetail = "get:drinks-detail"
	PermissionPostDrinks      = "post:drinks"
	PermissionPatchDrinks     = "patch:drinks"
	PermissionDeleteDrinks    = "delete:drinks"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	guard := deps.AuthMiddleware
	drinks := deps.DrinkHandler

	r.Route("/drinks", func(r chi.Router) {
		r.Get("/", drinks.HandleListDrinks)
		r.Post("/", guard.Require(PermissionPostDrinks, drinks.HandleCreateDrink))
		r.Get("/{id}", drinks.HandleGetDrink)
		r.Patch("/{id}", guard.Require(PermissionPatchDrinks, drinks.HandleUpdateDrink))
		r.Delete("/{id}", guard.Require(PermissionDeleteDrinks, drinks.HandleDeleteDrink))
	})
	r.Get("/drinks-detail", guard.Require(PermissionGetDrinksDetail, drinks.HandleListDrinkDetails))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w)
	})

	return r
}
