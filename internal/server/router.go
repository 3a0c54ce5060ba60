package server

import (
	"context"
	"net/http"

	"storefront/internal/config"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/ratelimit"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Services are the components the router dispatches to.
type Services struct {
	Auth    service.AuthService
	Users   service.UserService
	Catalog service.CatalogService
	Orders  service.OrderService
	Tokens  *service.TokenManager

	// APILimiter throttles every /api request; nil disables it.
	APILimiter ratelimit.Limiter
	// Health reports backing store status for /health; nil reports up.
	Health func(ctx context.Context) map[string]string
}

// NewRouter assembles middleware and routes.
func NewRouter(cfg *config.Config, logger *zap.Logger, svc Services) http.Handler {
	router := chi.NewRouter()
	production := cfg.Server.IsProduction()

	proxies, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		logger.Warn("Ignoring invalid trusted proxies", zap.Error(err))
	}

	// Add basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack(proxies) {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !production))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Hunza E-Store API"})
	})
	router.Get("/health", healthHandler(svc.Health))

	// Product images
	if cfg.Server.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Server.UploadDir)))
		router.Handle("/uploads/*", fs)
	}

	guards := transport.Guards{
		Authenticate: custommiddleware.AuthMiddleware(svc.Tokens, logger),
		RequireAdmin: custommiddleware.RequireAdmin(svc.Users, logger),
	}

	router.Group(func(r chi.Router) {
		if svc.APILimiter != nil {
			r.Use(custommiddleware.RateLimitMiddleware(svc.APILimiter, logger))
		}

		transport.NewAuthHandler(svc.Auth, logger, production).RegisterRoutes(r, guards)
		transport.NewUserHandler(svc.Auth, svc.Users, logger, production).RegisterRoutes(r, guards)
		transport.NewProductHandler(svc.Catalog, logger, production).RegisterRoutes(r, guards)
		transport.NewCategoryHandler(svc.Catalog, logger, production).RegisterRoutes(r, guards)
		transport.NewOrderHandler(svc.Orders, logger, production).RegisterRoutes(r, guards)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "Route not found")
	})

	return router
}

func healthHandler(check func(ctx context.Context) map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check == nil {
			custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]any{"status": "ok"})
			return
		}

		db := check(r.Context())
		status, code := "ok", http.StatusOK
		if db["status"] != "up" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, code, map[string]any{
			"status":   status,
			"database": db,
		})
	}
}
