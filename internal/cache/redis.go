package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "newsdesk:resp:"

// RedisResponses is a response cache shared through redis. Entries expire
// after the configured retention.
type RedisResponses struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisResponses(addr string, ttl time.Duration) *RedisResponses {
	return &RedisResponses{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

func (r *RedisResponses) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisResponses) Close() error {
	return r.rdb.Close()
}

// Values are stored as an 8-byte big-endian unix-nano timestamp followed by the body.
func (r *RedisResponses) GetResponse(ctx context.Context, key string) ([]byte, time.Time, error) {
	val, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, ErrMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis get: %w", err)
	}
	if len(val) < 8 {
		return nil, time.Time{}, ErrMiss
	}
	storedAt := time.Unix(0, int64(binary.BigEndian.Uint64(val[:8])))
	return val[8:], storedAt, nil
}

func (r *RedisResponses) PutResponse(ctx context.Context, key string, body []byte) error {
	val := make([]byte, 8+len(body))
	binary.BigEndian.PutUint64(val[:8], uint64(time.Now().UnixNano()))
	copy(val[8:], body)
	if err := r.rdb.Set(ctx, redisKeyPrefix+key, val, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
