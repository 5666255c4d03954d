package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/healping/internal/model"
)

// Store persists the token pair of the local session.
type Store interface {
	// Load returns model.ErrNotFound when nothing is stored.
	Load(ctx context.Context) (model.TokenPair, error)
	Save(ctx context.Context, pair model.TokenPair) error
	Delete(ctx context.Context) error
}

// MemoryStore keeps the token pair in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	pair *model.TokenPair
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (model.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil {
		return model.TokenPair{}, model.ErrNotFound
	}
	return *s.pair, nil
}

func (s *MemoryStore) Save(_ context.Context, pair model.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = &pair
	return nil
}

func (s *MemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}

// RedisStore keeps the token pair as JSON under a single Redis key.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore creates a RedisStore writing to key.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (model.TokenPair, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.TokenPair{}, model.ErrNotFound
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to load session: %w", err)
	}

	var pair model.TokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return pair, nil
}

func (s *RedisStore) Save(ctx context.Context, pair model.TokenPair) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
