package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/eduka/notification-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBroker struct {
	err        error
	calls      int
	routingKey string
	body       []byte
}

func (s *stubBroker) Publish(ctx context.Context, routingKey string, body []byte, messageID string) error {
	s.calls++
	s.routingKey = routingKey
	s.body = body
	return s.err
}

func TestRoutingKeyTotalAndInjective(t *testing.T) {
	seen := make(map[string]models.Category)
	for _, category := range []models.Category{
		models.CategoryOrder,
		models.CategoryLibrary,
		models.CategoryHousing,
		models.CategoryEmail,
	} {
		key, err := RoutingKey(category)
		require.NoError(t, err, "routing key must be total over valid categories")
		require.NotEmpty(t, key)
		prev, dup := seen[key]
		require.False(t, dup, "categories %s and %s share routing key %s", prev, category, key)
		seen[key] = category
	}
}

func TestRoutingKeyUnknownCategory(t *testing.T) {
	_, err := RoutingKey("SMS")
	assert.ErrorIs(t, err, models.ErrInvalidCategory)
}

func TestBindingsExactMatch(t *testing.T) {
	// One queue per category, bound by the exact key the publisher resolves.
	bindings := Bindings()
	require.Len(t, bindings, 4)
	for _, b := range bindings {
		key, err := RoutingKey(b.Category)
		require.NoError(t, err)
		assert.Equal(t, key, b.RoutingKey, "queue %s", b.Queue)
	}
}

func TestPublishRoutesByCategory(t *testing.T) {
	broker := &stubBroker{}
	p := NewPublisher(broker, zap.NewNop())

	msg := &models.NotificationMessage{
		ID:       "n1",
		UserID:   "u1",
		Category: models.CategoryOrder,
		Detail: models.OrderDetail{
			OrderID:        "o1",
			RestaurantName: "Pizza Palace",
			TotalAmount:    23.5,
		},
	}
	require.NoError(t, p.Publish(context.Background(), msg))

	assert.Equal(t, 1, broker.calls)
	assert.Equal(t, OrderRoutingKey, broker.routingKey)

	var onWire models.NotificationMessage
	require.NoError(t, json.Unmarshal(broker.body, &onWire))
	detail, ok := onWire.Detail.(models.OrderDetail)
	require.True(t, ok)
	assert.Equal(t, "o1", detail.OrderID)
}

func TestPublishRejectsInvalidMessageBeforeBroker(t *testing.T) {
	broker := &stubBroker{}
	p := NewPublisher(broker, zap.NewNop())

	tests := []struct {
		name    string
		msg     *models.NotificationMessage
		wantErr error
	}{
		{
			name:    "unknown category",
			msg:     &models.NotificationMessage{ID: "n1", UserID: "u1", Category: "SMS"},
			wantErr: models.ErrInvalidCategory,
		},
		{
			name:    "email without recipient",
			msg:     &models.NotificationMessage{ID: "n2", UserID: "u1", Category: models.CategoryEmail},
			wantErr: models.ErrMissingEmail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Publish(context.Background(), tt.msg)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, broker.calls, "invalid messages must never reach the broker")
		})
	}
}

func TestPublishAbsorbsBrokerFailure(t *testing.T) {
	broker := &stubBroker{err: errors.New("broker unreachable")}
	p := NewPublisher(broker, zap.NewNop())

	msg := &models.NotificationMessage{
		ID:       "n1",
		UserID:   "u1",
		Category: models.CategoryHousing,
		Detail:   models.HousingDetail{RoomNumber: "B-204"},
	}
	// A broker send failure must not propagate to the business operation.
	assert.NoError(t, p.Publish(context.Background(), msg))
	assert.Equal(t, 1, broker.calls)
}
