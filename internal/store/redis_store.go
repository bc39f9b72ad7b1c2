package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-service/internal/config"
	"marketplace-service/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore persists notification logs in Redis, one JSON document per
// viewer under notifications:{viewer} plus a deleted-id set under
// notifications:{viewer}:deleted. Entries have no TTL: the log is durable
// state, not a cache.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// newRedisStore connects to Redis, falling back to the in-memory store when
// the server is unreachable.
func newRedisStore(cfg *config.Config, logger *zap.Logger) Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 5,
		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		// Retry settings
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Failed to connect to Redis, using in-memory notification store",
			zap.String("host", cfg.RedisHost),
			zap.String("port", cfg.RedisPort),
			zap.Error(err),
		)
		rdb.Close()
		return NewMemoryStore()
	}

	logger.Info("Redis notification store initialized successfully",
		zap.String("host", cfg.RedisHost),
		zap.String("port", cfg.RedisPort),
		zap.Int("db", cfg.RedisDB),
	)

	return &RedisStore{
		client: rdb,
		logger: logger,
	}
}

func (s *RedisStore) Load(ctx context.Context, viewer string) ([]models.Notification, error) {
	data, err := s.client.Get(ctx, notificationsKey(viewer)).Bytes()
	if err == redis.Nil {
		return []models.Notification{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}

	var notifications []models.Notification
	if err := json.Unmarshal(data, &notifications); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notifications: %w", err)
	}
	return notifications, nil
}

func (s *RedisStore) Save(ctx context.Context, viewer string, notifications []models.Notification) error {
	data, err := json.Marshal(notifications)
	if err != nil {
		return fmt.Errorf("failed to marshal notifications: %w", err)
	}

	if err := s.client.Set(ctx, notificationsKey(viewer), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save notifications: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadTombstones(ctx context.Context, viewer string) ([]string, error) {
	data, err := s.client.Get(ctx, tombstonesKey(viewer)).Bytes()
	if err == redis.Nil {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tombstones: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tombstones: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) SaveTombstones(ctx context.Context, viewer string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal tombstones: %w", err)
	}

	if err := s.client.Set(ctx, tombstonesKey(viewer), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save tombstones: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
