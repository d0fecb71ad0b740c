package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/pkg/config"
	goredis "github.com/redis/go-redis/v9"
)

// Client Redis 客户端，对外隐藏 go-redis 类型
type Client struct {
	rdb goredis.UniversalClient
	cfg *Config
}

// NewClient 创建 Redis 客户端
func NewClient(cfg *Config) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge redis config")
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        newCfg.Addrs,
		Password:     newCfg.Password,
		DB:           newCfg.DB,
		PoolSize:     newCfg.PoolSize,
		MinIdleConns: newCfg.MinIdleConns,
		DialTimeout:  newCfg.DialTimeout,
		ReadTimeout:  newCfg.ReadTimeout,
		WriteTimeout: newCfg.WriteTimeout,
		PoolTimeout:  newCfg.PoolTimeout,
	})

	return &Client{rdb: rdb, cfg: newCfg}, nil
}

// Key 拼接统一前缀
func (c *Client) Key(parts ...string) string {
	return joinKey(c.cfg.KeyPrefix, parts...)
}

func joinKey(prefix string, parts ...string) string {
	n := len(prefix)
	for _, p := range parts {
		n += len(p) + 1
	}
	buf := make([]byte, 0, n)
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, p...)
	}
	return string(buf)
}

// Get 读取字符串值，键不存在时返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", key)
	}
	return val, nil
}

// Set 写入值
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

// SetNX 键不存在时写入
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "redis setnx %s", key)
	}
	return ok, nil
}

// PTTL 剩余过期时间
func (c *Client) PTTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redis pttl %s", key)
	}
	return d, nil
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.Wrap(err, "redis del")
	}
	return n, nil
}

// Ping 检查连接
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.rdb.Close()
}
