package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// Broker is the connectivity slice of the rabbit client.
type Broker interface {
	IsConnected() bool
}

// BreakerStater reports the circuit state of a protected dependency.
type BreakerStater interface {
	State() gobreaker.State
}

type HealthHandler struct {
	broker      Broker
	redis       *redis.Client
	userBreaker BreakerStater
}

func NewHealthHandler(broker Broker, redisClient *redis.Client, userBreaker BreakerStater) *HealthHandler {
	return &HealthHandler{
		broker:      broker,
		redis:       redisClient,
		userBreaker: userBreaker,
	}
}

// HealthCheck reports per-dependency health. A tripped circuit on the user
// service means degraded, not unhealthy: the pipeline keeps working on its
// fallback.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)

	if h.broker.IsConnected() {
		checks["rabbitmq"] = "healthy"
	} else {
		checks["rabbitmq"] = "unhealthy"
	}

	if err := h.redis.Ping(ctx).Err(); err == nil {
		checks["redis"] = "healthy"
	} else {
		checks["redis"] = "unhealthy"
	}

	if h.userBreaker.State() == gobreaker.StateClosed {
		checks["user_service"] = "healthy"
	} else {
		checks["user_service"] = "degraded"
	}

	overallStatus := "healthy"
	for _, status := range checks {
		if status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		} else if status == "degraded" {
			overallStatus = "degraded"
		}
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
		"version":   "1.0.0",
	})
}
