package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceTTL     = 5 * time.Minute
	verificationTTL = 5 * time.Minute
)

// RedisStore handles Redis operations for presence, sign-in verification
// codes and rate-limit counters. It is optional at runtime; callers must
// tolerate a nil store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for middleware that needs raw
// commands (rate limiting).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// presenceKey returns the key for a user's online marker.
func presenceKey(phone string) string {
	return fmt.Sprintf("presence:%s", phone)
}

// verificationKey returns the key for a phone's pending sign-in code.
func verificationKey(phone string) string {
	return fmt.Sprintf("verify:%s", phone)
}

// SetPresence marks a user as recently seen.
func (s *RedisStore) SetPresence(ctx context.Context, phone string) error {
	return s.client.Set(ctx, presenceKey(phone), time.Now().UTC().Format(time.RFC3339), presenceTTL).Err()
}

// IsOnline reports whether a user's presence marker is still live.
func (s *RedisStore) IsOnline(ctx context.Context, phone string) (bool, error) {
	_, err := s.client.Get(ctx, presenceKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// StoreVerificationCode saves the hash of a pending sign-in code,
// replacing any previous one for the phone.
func (s *RedisStore) StoreVerificationCode(ctx context.Context, phone, codeHash string) error {
	return s.client.Set(ctx, verificationKey(phone), codeHash, verificationTTL).Err()
}

// GetVerificationCode returns the stored code hash, or "" when none is
// pending or it expired.
func (s *RedisStore) GetVerificationCode(ctx context.Context, phone string) (string, error) {
	hash, err := s.client.Get(ctx, verificationKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// ConsumeVerificationCode deletes a pending code after successful use.
func (s *RedisStore) ConsumeVerificationCode(ctx context.Context, phone string) error {
	return s.client.Del(ctx, verificationKey(phone)).Err()
}
