package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const defaultSessionKeyPrefix = "railinspect:session:"

// RedisSessionStore implements inspection.SessionStore using Redis.
// Each session is one JSON value written with a whole-value SET and a TTL.
type RedisSessionStore struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
	ttl        time.Duration
}

// NewRedisSessionStore connects to Redis and verifies the connection
func NewRedisSessionStore(cfg config.RedisConfig, ttl time.Duration) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSessionStore{
		client:     client,
		ownsClient: true,
		keyPrefix:  defaultSessionKeyPrefix,
		ttl:        ttl,
	}, nil
}

// NewRedisSessionStoreWithClient wraps an existing client, which the caller keeps owning
func NewRedisSessionStoreWithClient(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client:    client,
		keyPrefix: defaultSessionKeyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisSessionStore) key(id string) string {
	return s.keyPrefix + id
}

// Get loads a session, or returns shared.ErrNotFound
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*inspection.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session inspection.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Save writes the whole session and refreshes its TTL
func (s *RedisSessionStore) Save(ctx context.Context, session *inspection.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis client if this store created it
func (s *RedisSessionStore) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

var _ inspection.SessionStore = (*RedisSessionStore)(nil)
