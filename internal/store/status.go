package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eduka/notification-service/internal/config"
	"github.com/eduka/notification-service/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrStatusNotFound is returned when no status record exists for an id.
var ErrStatusNotFound = errors.New("notification status not found")

// NewRedisClient connects and pings within a short timeout.
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return client, nil
}

// StatusStore keeps notification status records and idempotency guards in
// Redis. Records expire; the store is a convenience for API consumers, not a
// source of truth for the pipeline.
type StatusStore struct {
	client         *redis.Client
	statusTTL      time.Duration
	idempotencyTTL time.Duration
}

func NewStatusStore(client *redis.Client, cfg config.RedisConfig) *StatusStore {
	statusTTL := cfg.StatusTTL
	if statusTTL == 0 {
		statusTTL = 24 * time.Hour
	}
	idemTTL := cfg.IdempotencyTTL
	if idemTTL == 0 {
		idemTTL = 24 * time.Hour
	}
	return &StatusStore{client: client, statusTTL: statusTTL, idempotencyTTL: idemTTL}
}

func statusKey(id string) string      { return "notification:status:" + id }
func idempotencyKey(id string) string { return "notification:idempotency:" + id }

// MarkQueued records that a notification was handed to the broker.
func (s *StatusStore) MarkQueued(ctx context.Context, id string, category models.Category) error {
	now := time.Now().UTC()
	record := models.NotificationStatus{
		ID:        id,
		Category:  category,
		Status:    "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, statusKey(id), data, s.statusTTL).Err()
}

// Get returns the status record for a notification id.
func (s *StatusStore) Get(ctx context.Context, id string) (*models.NotificationStatus, error) {
	data, err := s.client.Get(ctx, statusKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	var record models.NotificationStatus
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CheckIdempotency reports whether this key was already seen, claiming it for
// idempotencyTTL when it was not.
func (s *StatusStore) CheckIdempotency(ctx context.Context, key string) (bool, error) {
	set, err := s.client.SetNX(ctx, idempotencyKey(key), "processing", s.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
