package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eduka/notification-service/internal/config"
	"github.com/eduka/notification-service/internal/consumer"
	"github.com/eduka/notification-service/internal/email"
	"github.com/eduka/notification-service/internal/handlers"
	"github.com/eduka/notification-service/internal/middleware"
	"github.com/eduka/notification-service/internal/queue"
	"github.com/eduka/notification-service/internal/services"
	"github.com/eduka/notification-service/internal/store"
	"github.com/eduka/notification-service/pkg/resilience"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger", err)
	}
	defer logger.Sync()

	redisClient, err := store.NewRedisClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	statusStore := store.NewStatusStore(redisClient, cfg.Redis)

	rabbit, err := queue.NewClient(cfg.RabbitMQ, logger)
	if err != nil {
		logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer rabbit.Close()
	if err := rabbit.DeclareTopology(); err != nil {
		logger.Fatal("failed to declare broker topology", zap.Error(err))
	}

	publisher := queue.NewPublisher(rabbit, logger)

	userBreaker := resilience.NewBreaker(resilience.Settings{
		Name:             "user-service",
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
		Retries:          cfg.Breaker.Retries,
		RetryDelay:       cfg.Breaker.RetryDelay,
	}, logger)
	// Fail open: dropping campus notifications because user management is down
	// is worse than occasionally queuing one for a stale user. Degraded
	// results stay visible to the handler through UserResult.Degraded.
	userClient := services.NewUserClient(cfg.UserService, userBreaker, services.FailOpen, logger)

	sender := email.NewLogSender(logger)
	pool := consumer.NewPool(rabbit, sender, logger)
	consumeCtx, stopConsumers := context.WithCancel(context.Background())
	pool.Start(consumeCtx)

	notificationHandler := handlers.NewNotificationHandler(publisher, statusStore, userClient, logger)
	healthHandler := handlers.NewHealthHandler(rabbit, redisClient, userBreaker)

	r := gin.Default()
	r.Use(middleware.CorrelationID())

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.Auth.JWTSecret))
	{
		api.POST("/notifications", notificationHandler.Send)
		api.GET("/notifications/:id/status", notificationHandler.GetStatus)
	}

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/alive", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "alive",
			"service": "notification-service",
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}
	go func() {
		logger.Info("server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}

	// Stop pulling new messages, then let in-flight ones finish before the
	// connections close.
	stopConsumers()
	pool.Wait()
	logger.Info("shutdown complete")
}
