package kafka

import (
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidConfig  = errors.New("kafka: invalid config")
	ErrProducerClosed = errors.New("kafka: producer closed")
)

// Config 生产者配置
type Config struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`

	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	// RequiredAcks -1=all, 0=none, 1=leader
	RequiredAcks int `mapstructure:"required_acks" validate:"oneof=-1 0 1"`
	// Compression none/gzip/snappy/lz4/zstd
	Compression string `mapstructure:"compression" validate:"omitempty,oneof=none gzip snappy lz4 zstd"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		Topic:        "maskpack.events",
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		MaxRetries:   3,
		RequiredAcks: 1,
		Compression:  "none",
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.Wrap(ErrInvalidConfig, "brokers is required")
	}
	if c.Topic == "" {
		return errors.Wrap(ErrInvalidConfig, "topic is required")
	}
	return nil
}
