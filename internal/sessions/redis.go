package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edgard/longopass/internal/widget"
)

// RedisConfig holds the connection settings of a Redis store.
type RedisConfig struct {
	Addr        string
	Username    string
	Password    string
	DB          int
	KeyPrefix   string
	TTL         time.Duration
	DialTimeout time.Duration
	Timeout     time.Duration
}

// Redis stores sessions as JSON values with a sliding TTL.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return &Redis{rdb: rdb, prefix: cfg.KeyPrefix, ttl: cfg.TTL}, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Load(ctx context.Context, key string) (widget.Session, bool, error) {
	val, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return widget.Session{}, false, nil
	}
	if err != nil {
		return widget.Session{}, false, fmt.Errorf("failed to load session %s: %w", key, err)
	}
	var s widget.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return widget.Session{}, false, fmt.Errorf("failed to decode session %s: %w", key, err)
	}
	return s, true, nil
}

func (r *Redis) Save(ctx context.Context, key string, s widget.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", key, err)
	}
	if err := r.rdb.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
