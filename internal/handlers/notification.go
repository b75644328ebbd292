package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/eduka/notification-service/internal/models"
	"github.com/eduka/notification-service/internal/services"
	"github.com/eduka/notification-service/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher hands a validated message to the broker. Broker-level failures
// are absorbed inside; errors returned here are caller errors.
type Publisher interface {
	Publish(ctx context.Context, msg *models.NotificationMessage) error
}

// UserValidator is the resilient user-management client.
type UserValidator interface {
	ValidateUser(ctx context.Context, userID string) (services.UserResult, error)
}

type NotificationHandler struct {
	publisher Publisher
	store     *store.StatusStore
	users     UserValidator
	logger    *zap.Logger
}

func NewNotificationHandler(
	publisher Publisher,
	statusStore *store.StatusStore,
	users UserValidator,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		publisher: publisher,
		store:     statusStore,
		users:     users,
		logger:    logger,
	}
}

// Send accepts a notification request and hands it to the broker. The
// response is 202 once the broker accepted the message (or the send failure
// was absorbed); only caller errors produce 4xx.
func (n *NotificationHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()
	correlationID := c.GetString("correlation_id")

	var req models.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   err.Error(),
			Message: "Invalid request body",
		})
		return
	}

	notificationID := uuid.New().String()
	msg, err := req.ToMessage(notificationID, correlationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   err.Error(),
			Message: "Invalid notification",
		})
		return
	}

	if key := c.GetHeader("X-Idempotency-Key"); key != "" {
		duplicate, err := n.store.CheckIdempotency(ctx, key)
		if err != nil {
			n.logger.Warn("idempotency check failed", zap.Error(err))
		} else if duplicate {
			c.JSON(http.StatusOK, models.APIResponse{
				Success: true,
				Message: "Notification already processed",
			})
			return
		}
	}

	result, err := n.users.ValidateUser(ctx, req.UserID)
	if err != nil {
		n.logger.Warn("user validation errored, proceeding", zap.Error(err))
	} else if result.Degraded {
		if !result.Valid {
			c.JSON(http.StatusServiceUnavailable, models.APIResponse{
				Success: false,
				Error:   "user validation unavailable",
				Message: "Service degraded",
			})
			return
		}
		n.logger.Warn("user validation degraded, assuming valid",
			zap.String("user_id", req.UserID),
			zap.String("correlation_id", correlationID),
		)
	} else if !result.Found || !result.Valid {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   "user not found or inactive",
			Message: "User not available",
		})
		return
	}

	if err := n.publisher.Publish(ctx, msg); err != nil {
		status := http.StatusInternalServerError
		message := "Internal server error"
		if isCallerError(err) {
			status = http.StatusBadRequest
			message = "Invalid notification"
		}
		c.JSON(status, models.APIResponse{
			Success: false,
			Error:   err.Error(),
			Message: message,
		})
		return
	}

	if err := n.store.MarkQueued(ctx, notificationID, msg.Category); err != nil {
		n.logger.Warn("failed to store notification status",
			zap.String("notification_id", notificationID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusAccepted, models.APIResponse{
		Success: true,
		Message: "Notification queued successfully",
		Data: models.NotificationResponse{
			NotificationID: notificationID,
			Status:         "queued",
			QueuedAt:       time.Now().UTC(),
		},
	})
}

// GetStatus returns the stored status record for a notification.
func (n *NotificationHandler) GetStatus(c *gin.Context) {
	record, err := n.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrStatusNotFound) {
			c.JSON(http.StatusNotFound, models.APIResponse{
				Success: false,
				Error:   err.Error(),
				Message: "Notification not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Error:   "failed to load notification status",
			Message: "Internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Notification status",
		Data:    record,
	})
}

func isCallerError(err error) bool {
	return errors.Is(err, models.ErrInvalidCategory) ||
		errors.Is(err, models.ErrMissingUserID) ||
		errors.Is(err, models.ErrMissingEmail) ||
		errors.Is(err, models.ErrDetailMismatch)
}
