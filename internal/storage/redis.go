package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "cartwidget:session:"

// RedisStorage keeps session values in Redis. Every read and write refreshes
// the key TTL, so idle sessions expire without a purge pass.
type RedisStorage struct {
	rdb goredis.Cmdable
	ttl time.Duration
	log Log

	closer func() error
}

// NewRedisClient connects to addr and verifies the connection with a PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is empty")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// NewRedisStorage wraps an existing client.
func NewRedisStorage(client *goredis.Client, ttl time.Duration, log Log) *RedisStorage {
	return &RedisStorage{
		rdb:    client,
		ttl:    ttl,
		log:    log,
		closer: client.Close,
	}
}

func redisKey(sessionID, key string) string {
	return redisKeyPrefix + sessionID + ":" + key
}

func (rs *RedisStorage) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	v, err := rs.rdb.GetEx(ctx, redisKey(sessionID, key), rs.ttl).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		rs.log.Error("Failed to read session value", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (rs *RedisStorage) Set(ctx context.Context, sessionID, key string, value []byte) error {
	if err := rs.rdb.Set(ctx, redisKey(sessionID, key), value, rs.ttl).Err(); err != nil {
		rs.log.Error("Failed to write session value", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Purge is a no-op; Redis expires keys on its own.
func (rs *RedisStorage) Purge(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (rs *RedisStorage) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rs.rdb.Ping(ctx).Err(); err != nil {
		rs.log.Error("Redis ping failed", zap.Error(err))
		return false
	}
	return true
}

func (rs *RedisStorage) Close() bool {
	if rs.closer == nil {
		rs.log.Info("Attempted to close a nil redis client")
		return false
	}
	if err := rs.closer(); err != nil {
		rs.log.Error("Failed to close redis client", zap.Error(err))
		return false
	}
	rs.log.Info("Redis client closed")
	return true
}
