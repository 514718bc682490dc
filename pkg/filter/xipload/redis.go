package xipload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
)

// RedisConfig 是快照存储的 Redis 连接参数。
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	// Key 快照 key
	Key string `koanf:"key"`
	// TTL 快照过期时间，0 表示不过期
	TTL time.Duration `koanf:"ttl"`
}

// NewRedisClient 根据配置创建单节点 Redis 客户端。
func NewRedisClient(cfg RedisConfig) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisStore 把范围表的 JSON 快照保存在 Redis 字符串 key 中，
// 供多个进程共享同一张构建好的表。
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore 创建快照存储。
func NewRedisStore(client redis.UniversalClient) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &RedisStore{client: client}, nil
}

// Save 写入快照。ttl 为 0 表示不过期。
func (s *RedisStore) Save(ctx context.Context, key string, t *xipfilter.Table, ttl time.Duration) error {
	if t == nil {
		return ErrNilTable
	}
	data, err := t.ToJSON()
	if err != nil {
		return fmt.Errorf("xipload: encode snapshot %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("xipload: save snapshot %s: %w", key, err)
	}
	return nil
}

// Load 读取快照。key 不存在时返回 [ErrSnapshotNotFound]。
func (s *RedisStore) Load(ctx context.Context, key string, opts ...xipfilter.Option) (*xipfilter.Table, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("xipload: load snapshot %s: %w", key, err)
	}
	t, err := xipfilter.FromJSON(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("xipload: decode snapshot %s: %w", key, err)
	}
	return t, nil
}

// Client 返回底层的 redis.UniversalClient。
func (s *RedisStore) Client() redis.UniversalClient {
	return s.client
}
