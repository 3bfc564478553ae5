package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/salescrm/crm-portal/internal/config"
	"github.com/salescrm/crm-portal/internal/domain"
)

const redisKeyPrefix = "crm-portal:session:"

// Redis wraps the go-redis client and stores session records as JSON strings.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Load returns the record stored under key, or nil when none exists.
func (r *Redis) Load(ctx context.Context, key string) (*domain.PersistedSession, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("redis client not configured")
	}
	raw, err := r.Client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var record domain.PersistedSession
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &record, nil
}

// Save rewrites the record stored under key. Records never expire; the
// server decides token validity.
func (r *Redis) Save(ctx context.Context, key string, record domain.PersistedSession) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.Client.Set(ctx, redisKeyPrefix+key, raw, 0).Err()
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
