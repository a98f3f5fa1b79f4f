package store

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/tuneflow/internal/database"
	"github.com/BaSui01/tuneflow/tuning"
)

// ErrStoreClosed is returned by a memory store after Close.
var ErrStoreClosed = errors.New("store is closed")

// Type selects the persistence backend.
type Type string

const (
	TypeMemory   Type = "memory"
	TypeDatabase Type = "database"
	TypeRedis    Type = "redis"
)

// Config configures the backend selection.
type Config struct {
	Type      Type
	KeyPrefix string
}

// Backends carries the connections a backend may need. Only the one matching
// Config.Type is used.
type Backends struct {
	Pool  *database.PoolManager
	Redis redis.UniversalClient
}

// New creates the store selected by cfg.Type.
func New(cfg Config, b Backends, logger *zap.Logger) (tuning.Store, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nil
	case TypeDatabase:
		if b.Pool == nil {
			return nil, fmt.Errorf("database store requires a database pool")
		}
		return NewGormStore(b.Pool, logger), nil
	case TypeRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("redis store requires a redis client")
		}
		return NewRedisStore(b.Redis, cfg.KeyPrefix, logger), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
