package store

import (
	"context"
	"fmt"
	"sync"

	"marketplace-service/internal/config"
	"marketplace-service/internal/models"

	"go.uber.org/zap"
)

// Store is the durable per-viewer notification log. It is the sole durable
// copy: reconciler sessions rebuild their in-memory state from it on every
// pass. Implementations must keep viewers fully isolated from each other.
type Store interface {
	// Load returns the viewer's persisted notification log, empty if none.
	Load(ctx context.Context, viewer string) ([]models.Notification, error)
	// Save replaces the viewer's persisted notification log.
	Save(ctx context.Context, viewer string, notifications []models.Notification) error
	// LoadTombstones returns the ids of notifications the viewer deleted.
	LoadTombstones(ctx context.Context, viewer string) ([]string, error)
	// SaveTombstones replaces the viewer's deleted-id set.
	SaveTombstones(ctx context.Context, viewer string, ids []string) error
	// Close releases any underlying resources.
	Close() error
}

// New creates the store selected by configuration. An unreachable Redis falls
// back to the in-memory store so the service still comes up; SQLite failures
// are fatal because a configured database path is expected to work.
func New(cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		return newRedisStore(cfg, logger), nil
	case "sqlite":
		logger.Info("Initializing SQLite notification store", zap.String("path", cfg.SQLitePath))
		return NewSQLiteStore(cfg.SQLitePath)
	case "memory", "":
		logger.Warn("Using in-memory notification store (notifications do not survive restarts)")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

// notificationsKey is the per-viewer partition key. Switching viewer identity
// yields a disjoint store.
func notificationsKey(viewer string) string {
	return "notifications:" + viewer
}

func tombstonesKey(viewer string) string {
	return notificationsKey(viewer) + ":deleted"
}

// MemoryStore keeps notification logs in process memory. Used in tests and as
// the fallback backend.
type MemoryStore struct {
	mu         sync.RWMutex
	logs       map[string][]models.Notification
	tombstones map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:       make(map[string][]models.Notification),
		tombstones: make(map[string][]string),
	}
}

func (s *MemoryStore) Load(ctx context.Context, viewer string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, exists := s.logs[notificationsKey(viewer)]
	if !exists {
		return []models.Notification{}, nil
	}

	out := make([]models.Notification, len(log))
	copy(out, log)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, viewer string, notifications []models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := make([]models.Notification, len(notifications))
	copy(log, notifications)
	s.logs[notificationsKey(viewer)] = log
	return nil
}

func (s *MemoryStore) LoadTombstones(ctx context.Context, viewer string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, exists := s.tombstones[tombstonesKey(viewer)]
	if !exists {
		return []string{}, nil
	}

	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *MemoryStore) SaveTombstones(ctx context.Context, viewer string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(ids))
	copy(out, ids)
	s.tombstones[tombstonesKey(viewer)] = out
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
