package models

import (
	"encoding/json"
	"time"
)

type SendNotificationRequest struct {
	UserID   string          `json:"user_id" binding:"required"`
	Category Category        `json:"category" binding:"required"`
	Subject  string          `json:"subject"`
	Body     string          `json:"body"`
	Email    string          `json:"email"`
	Detail   json.RawMessage `json:"detail"`
}

// ToMessage builds the queue payload from an inbound request. Caller errors
// (unknown category, missing email, malformed detail) surface here, before
// anything touches the broker.
func (r *SendNotificationRequest) ToMessage(id, correlationID string) (*NotificationMessage, error) {
	msg := &NotificationMessage{
		ID:            id,
		UserID:        r.UserID,
		Category:      r.Category,
		Subject:       r.Subject,
		Body:          r.Body,
		Email:         r.Email,
		CreatedAt:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
	if len(r.Detail) > 0 && string(r.Detail) != "null" {
		detail, err := DecodeDetail(r.Category, r.Detail)
		if err != nil {
			return nil, err
		}
		msg.Detail = detail
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message"`
}

type NotificationResponse struct {
	NotificationID string    `json:"notification_id"`
	Status         string    `json:"status"`
	QueuedAt       time.Time `json:"queued_at"`
}

type NotificationStatus struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
