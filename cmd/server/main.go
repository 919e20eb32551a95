// Package main runs the accounts HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/orbitlabs/accounts-backend/config"
	"github.com/orbitlabs/accounts-backend/internal/auth"
	"github.com/orbitlabs/accounts-backend/internal/identity"
	"github.com/orbitlabs/accounts-backend/internal/membership"
	"github.com/orbitlabs/accounts-backend/internal/middleware"
	"github.com/orbitlabs/accounts-backend/internal/organisations"
	"github.com/orbitlabs/accounts-backend/internal/users"
	"github.com/orbitlabs/accounts-backend/pkg/database"
	"github.com/orbitlabs/accounts-backend/pkg/queue"
	"github.com/orbitlabs/accounts-backend/pkg/redis"
	"github.com/orbitlabs/accounts-backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it the service runs with rate limiting and
	// welcome emails disabled.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis disabled", zap.Error(err))
			rdb = nil
		}
	}

	tokenService := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	identityRepo := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepo)

	membershipRepo := membership.NewRepository(pool)
	membershipService := membership.NewService(membershipRepo, identityRepo)

	var emailQueue auth.WelcomeEnqueuer
	var limiter middleware.WindowCounter
	if rdb != nil {
		emailQueue = queue.NewQueue(rdb.Client, logger)
		limiter = rdb
	}

	authHandler := auth.NewHandler(identityService, tokenService, emailQueue, logger)
	usersHandler := users.NewHandler(identityService, membershipService)
	orgHandler := organisations.NewHandler(membershipService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, "ok", nil) })

	rateLimit := middleware.RateLimit(limiter, cfg.RateLimit.Requests,
		time.Duration(cfg.RateLimit.WindowSec)*time.Second)

	authGroup := router.Group("/auth")
	authGroup.Use(rateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	api := router.Group("/api")
	api.Use(middleware.Authenticate(tokenService, identityService))
	{
		api.GET("/users/:id", usersHandler.Get)
		api.GET("/organisations", orgHandler.List)
		api.POST("/organisations", orgHandler.Create)
		api.GET("/organisations/:orgId", orgHandler.Get)
		api.POST("/organisations/:orgId/users", orgHandler.AddUser)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
