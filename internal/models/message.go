package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category determines which queue a notification is routed to.
type Category string

const (
	CategoryOrder   Category = "ORDER"
	CategoryLibrary Category = "LIBRARY"
	CategoryHousing Category = "HOUSING"
	CategoryEmail   Category = "EMAIL"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryOrder, CategoryLibrary, CategoryHousing, CategoryEmail:
		return true
	}
	return false
}

// Detail is the category-specific payload of a notification. It is a closed
// union: exactly one variant exists per category, and the JSON codec keys the
// variant off the message's category, so a message with a mismatched detail
// cannot be constructed by decoding.
type Detail interface {
	DetailCategory() Category
}

type OrderDetail struct {
	OrderID        string  `json:"order_id"`
	RestaurantName string  `json:"restaurant_name"`
	TotalAmount    float64 `json:"total_amount"`
}

func (OrderDetail) DetailCategory() Category { return CategoryOrder }

type LibraryDetail struct {
	BookTitle string `json:"book_title"`
}

func (LibraryDetail) DetailCategory() Category { return CategoryLibrary }

type HousingDetail struct {
	RoomNumber string `json:"room_number"`
}

func (HousingDetail) DetailCategory() Category { return CategoryHousing }

// InfoDetail carries a free-form string for EMAIL notifications.
type InfoDetail struct {
	Info string `json:"info"`
}

func (InfoDetail) DetailCategory() Category { return CategoryEmail }

// NotificationMessage is the queue payload. It is immutable once published and
// consumed at-least-once per bound queue.
type NotificationMessage struct {
	ID            string
	UserID        string
	Category      Category
	Subject       string
	Body          string
	Email         string
	CreatedAt     time.Time
	CorrelationID string
	Detail        Detail
}

// Validate enforces the publish preconditions. A message that fails here is a
// caller error and must never reach the broker.
func (m *NotificationMessage) Validate() error {
	if !m.Category.IsValid() {
		return ErrInvalidCategory
	}
	if m.UserID == "" {
		return ErrMissingUserID
	}
	if m.Category == CategoryEmail && m.Email == "" {
		return ErrMissingEmail
	}
	if m.Detail != nil && m.Detail.DetailCategory() != m.Category {
		return ErrDetailMismatch
	}
	return nil
}

type messageEnvelope struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Category      Category        `json:"category"`
	Subject       string          `json:"subject"`
	Body          string          `json:"body"`
	Email         string          `json:"email,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Detail        json.RawMessage `json:"detail,omitempty"`
}

func (m NotificationMessage) MarshalJSON() ([]byte, error) {
	env := messageEnvelope{
		ID:            m.ID,
		UserID:        m.UserID,
		Category:      m.Category,
		Subject:       m.Subject,
		Body:          m.Body,
		Email:         m.Email,
		CreatedAt:     m.CreatedAt,
		CorrelationID: m.CorrelationID,
	}
	if m.Detail != nil {
		if m.Detail.DetailCategory() != m.Category {
			return nil, ErrDetailMismatch
		}
		raw, err := json.Marshal(m.Detail)
		if err != nil {
			return nil, err
		}
		env.Detail = raw
	}
	return json.Marshal(env)
}

func (m *NotificationMessage) UnmarshalJSON(data []byte) error {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*m = NotificationMessage{
		ID:            env.ID,
		UserID:        env.UserID,
		Category:      env.Category,
		Subject:       env.Subject,
		Body:          env.Body,
		Email:         env.Email,
		CreatedAt:     env.CreatedAt,
		CorrelationID: env.CorrelationID,
	}
	if len(env.Detail) == 0 || string(env.Detail) == "null" {
		return nil
	}
	detail, err := DecodeDetail(env.Category, env.Detail)
	if err != nil {
		return err
	}
	m.Detail = detail
	return nil
}

// DecodeDetail decodes raw detail JSON into the variant belonging to the
// given category.
func DecodeDetail(category Category, raw json.RawMessage) (Detail, error) {
	switch category {
	case CategoryOrder:
		var d OrderDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode order detail: %w", err)
		}
		return d, nil
	case CategoryLibrary:
		var d LibraryDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode library detail: %w", err)
		}
		return d, nil
	case CategoryHousing:
		var d HousingDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode housing detail: %w", err)
		}
		return d, nil
	case CategoryEmail:
		var d InfoDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode email detail: %w", err)
		}
		return d, nil
	default:
		return nil, ErrInvalidCategory
	}
}
