package redis

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config Redis 配置
// Addrs 只有一个地址时为单机模式，多个地址时为集群模式
type Config struct {
	Addrs    []string `mapstructure:"addrs"`
	Password string   `mapstructure:"password"`
	DB       int      `mapstructure:"db" validate:"gte=0,lte=15"`

	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`

	// KeyPrefix 所有 key 的统一前缀
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Addrs:        []string{"localhost:6379"},
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		KeyPrefix:    "maskpack:",
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if len(c.Addrs) == 0 {
		return errors.Wrap(ErrInvalidConfig, "at least one addr is required")
	}
	if c.IsCluster() && c.DB != 0 {
		return errors.Wrap(ErrInvalidConfig, "cluster mode only supports db 0")
	}
	return nil
}

// IsCluster 是否集群模式
func (c *Config) IsCluster() bool {
	return len(c.Addrs) > 1
}
