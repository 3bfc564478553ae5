package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/salescrm/crm-portal/internal/config"
	"github.com/salescrm/crm-portal/internal/domain"
)

// Backend is a session record store that can report its own health.
type Backend interface {
	Load(ctx context.Context, key string) (*domain.PersistedSession, error)
	Save(ctx context.Context, key string, record domain.PersistedSession) error
	Ping(ctx context.Context) error
}

var (
	_ Backend = (*FileStore)(nil)
	_ Backend = (*MemoryStore)(nil)
	_ Backend = (*Redis)(nil)
	_ Backend = (*Postgres)(nil)
)

// Open builds the backend selected by SESSION_BACKEND. The returned func
// releases its connections.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Backend, func(), error) {
	switch cfg.Session.Backend {
	case config.SessionBackendMemory:
		return NewMemoryStore(), func() {}, nil
	case config.SessionBackendFile:
		fs, err := NewFileStore(cfg.Session.FilePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("session file backend", zap.String("path", cfg.Session.FilePath))
		return fs, func() {}, nil
	case config.SessionBackendRedis:
		r := NewRedis(cfg.Redis, logger)
		return r, r.Close, nil
	case config.SessionBackendPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}
