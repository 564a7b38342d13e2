package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"accounting/backend/internal/domain"
)

// expiryGrace keeps a code readable for a while after it expires so a late
// verification is reported as expired rather than missing.
const expiryGrace = 15 * time.Minute

// codeRecord is the stored form; domain.OneTimeCode hides the hash from JSON.
type codeRecord struct {
	Identity  string    `json:"identity"`
	CodeHash  string    `json:"code_hash"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisCodeStore keeps one-time codes as JSON values keyed by identity.
type RedisCodeStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCodeStore(addr string, password string, db int) *RedisCodeStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCodeStore{client: client, prefix: "otp:"}
}

func (c *RedisCodeStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCodeStore) Close() error {
	return c.client.Close()
}

func (c *RedisCodeStore) key(identity string) string {
	return c.prefix + identity
}

func (c *RedisCodeStore) SaveCode(ctx context.Context, code domain.OneTimeCode) error {
	payload, err := json.Marshal(codeRecord(code))
	if err != nil {
		return err
	}
	ttl := time.Until(code.ExpiresAt) + expiryGrace
	if ttl <= 0 {
		ttl = expiryGrace
	}
	return c.client.Set(ctx, c.key(code.Identity), payload, ttl).Err()
}

func (c *RedisCodeStore) GetCode(ctx context.Context, identity string) (domain.OneTimeCode, error) {
	val, err := c.client.Get(ctx, c.key(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.OneTimeCode{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OneTimeCode{}, err
	}

	var rec codeRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return domain.OneTimeCode{}, err
	}
	return domain.OneTimeCode(rec), nil
}

func (c *RedisCodeStore) DeleteCode(ctx context.Context, identity string) error {
	return c.client.Del(ctx, c.key(identity)).Err()
}
