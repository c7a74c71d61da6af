package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

const presenceKeyPrefix = "presence:session:"

// RedisPresenceStore, SessionStore'un Redis implementasyonu.
// Birden fazla hub instance'ı aynı side-table'ı paylaşacaksa kullanılır.
// Her kayıt JSON değerli, TTL'li tek bir key'dir; süre dolumu Redis'e bırakılır.
type RedisPresenceStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPresenceStore, URL'den bağlanır ve bağlantıyı Ping ile doğrular.
func NewRedisPresenceStore(redisURL string, ttl time.Duration) (*RedisPresenceStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisPresenceStoreWithClient(client, ttl), nil
}

// NewRedisPresenceStoreWithClient, mevcut bir client'tan store oluşturur.
func NewRedisPresenceStoreWithClient(client *redis.Client, ttl time.Duration) *RedisPresenceStore {
	return &RedisPresenceStore{
		client: client,
		prefix: presenceKeyPrefix,
		ttl:    ttl,
	}
}

func (s *RedisPresenceStore) key(connectionID string) string {
	return s.prefix + connectionID
}

func (s *RedisPresenceStore) Put(ctx context.Context, state models.SessionState) error {
	now := time.Now().UTC()
	state.UpdatedAt = now
	state.ExpiresAt = now.Add(s.ttl)

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal presence session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(state.ConnectionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save presence session: %w", err)
	}
	return nil
}

func (s *RedisPresenceStore) Get(ctx context.Context, connectionID string) (*models.SessionState, error) {
	raw, err := s.client.Get(ctx, s.key(connectionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup presence session: %w", err)
	}

	var state models.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal presence session: %w", err)
	}
	return &state, nil
}

func (s *RedisPresenceStore) Delete(ctx context.Context, connectionID string) error {
	if err := s.client.Del(ctx, s.key(connectionID)).Err(); err != nil {
		return fmt.Errorf("delete presence session: %w", err)
	}
	return nil
}

// DeleteExpired, Redis TTL'i kendisi uyguladığı için no-op'tur.
func (s *RedisPresenceStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

// Ping, Redis'in erişilebilir olup olmadığını kontrol eder.
func (s *RedisPresenceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close, Redis bağlantısını kapatır.
func (s *RedisPresenceStore) Close() error {
	return s.client.Close()
}
