package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/ratelimit"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires the PostgreSQL repositories, the configured limiter
// backend and every service behind the HTTP router.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, db database.Service) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RateLimit.Backend == "redis" {
		client, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		redisClient = client
		logger.Info("Using Redis rate limiter", zap.String("addr", client.Options().Addr))
	}
	login, api := newLimiters(cfg.RateLimit, redisClient)

	// Initialize repositories
	conn := db.DB()
	txManager := database.NewTxManager(conn)
	userRepo := repository.NewUserRepository(conn)
	refreshTokenRepo := repository.NewRefreshTokenRepository(conn, txManager)
	categoryRepo := repository.NewCategoryRepository(conn)
	productRepo := repository.NewProductRepository(conn)
	reviewRepo := repository.NewReviewRepository(conn)
	orderRepo := repository.NewOrderRepository(conn)

	// Initialize services
	tokens := service.NewTokenManager(cfg.JWT)
	services := Services{
		Auth:       service.NewAuthService(userRepo, refreshTokenRepo, tokens, login, cfg.Security, logger),
		Users:      service.NewUserService(userRepo),
		Catalog:    service.NewCatalogService(productRepo, categoryRepo, reviewRepo),
		Orders:     service.NewOrderService(orderRepo, productRepo, userRepo, txManager, logger),
		Tokens:     tokens,
		APILimiter: api,
		Health:     db.Health,
	}

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(cfg, logger, services),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// newLimiters builds the login limiter and the optional general API limiter.
// A nil client selects the in-process backend.
func newLimiters(cfg config.RateLimitConfig, client *redis.Client) (login, api ratelimit.Limiter) {
	if client != nil {
		login = ratelimit.NewRedisLimiter(client, "storefront:login", cfg.LoginLimit, cfg.LoginWindow)
		if cfg.APILimit > 0 {
			api = ratelimit.NewRedisLimiter(client, "storefront:api", cfg.APILimit, time.Minute)
		}
		return login, api
	}

	login = ratelimit.NewMemoryLimiter(cfg.LoginLimit, cfg.LoginWindow)
	if cfg.APILimit > 0 {
		api = ratelimit.NewMemoryLimiter(cfg.APILimit, time.Minute)
	}
	return login, api
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

