package cache

import (
	"fmt"

	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ClosableSessionStore is a session store with resources to release
type ClosableSessionStore interface {
	inspection.SessionStore
	Close() error
}

// SessionStoreFactory creates the session store selected by configuration
type SessionStoreFactory struct {
	sessionConfig         config.SessionConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SessionStoreFactoryOption configures the factory
type SessionStoreFactoryOption func(*SessionStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SessionStoreFactoryOption {
	return func(f *SessionStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to memory
func WithInMemoryFallback(allow bool) SessionStoreFactoryOption {
	return func(f *SessionStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSessionStoreFactory creates a new factory
func NewSessionStoreFactory(sessionCfg config.SessionConfig, redisCfg config.RedisConfig, opts ...SessionStoreFactoryOption) *SessionStoreFactory {
	f := &SessionStoreFactory{
		sessionConfig:         sessionCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateInMemoryStore creates an in-memory store with the configured TTL
func (f *SessionStoreFactory) CreateInMemoryStore() ClosableSessionStore {
	return NewInMemorySessionStore(f.sessionConfig.TTL, f.sessionConfig.SweepInterval)
}

// CreateStore creates the configured store. When Redis is selected but
// unreachable it falls back to memory unless fallback is disabled.
func (f *SessionStoreFactory) CreateStore() (ClosableSessionStore, error) {
	if f.sessionConfig.Store != "redis" {
		f.logger.Info("Using in-memory session store", zap.Duration("ttl", f.sessionConfig.TTL))
		return f.CreateInMemoryStore(), nil
	}

	store, err := NewRedisSessionStore(f.redisConfig, f.sessionConfig.TTL)
	if err == nil {
		f.logger.Info("Using Redis session store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for sessions but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory session store. "+
		"Sessions will not be shared between instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}

// ClosableIdempotencyStore is the submission guard store
type ClosableIdempotencyStore = shared.IdempotencyStore

// CreateIdempotencyStore creates the submission guard on the same backend as
// the session store, so duplicate detection spans instances when sessions do
func (f *SessionStoreFactory) CreateIdempotencyStore() (ClosableIdempotencyStore, error) {
	if f.sessionConfig.Store != "redis" {
		return NewInMemoryIdempotencyStore(f.sessionConfig.SweepInterval), nil
	}

	store, err := NewRedisIdempotencyStore(f.redisConfig)
	if err == nil {
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for submission guard but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory submission guard", zap.Error(err))
	return NewInMemoryIdempotencyStore(f.sessionConfig.SweepInterval), nil
}
