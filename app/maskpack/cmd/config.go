package main

import (
	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/scheduler"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/service"
	"github.com/lk2023060901/maskpack/pkg/database/postgres"
	"github.com/lk2023060901/maskpack/pkg/database/redis"
	"github.com/lk2023060901/maskpack/pkg/idgen"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/lk2023060901/maskpack/pkg/mq/kafka"
	"github.com/lk2023060901/maskpack/pkg/otel"
	"github.com/lk2023060901/maskpack/pkg/prometheus"
	"github.com/lk2023060901/maskpack/pkg/sentry"
)

// ServerConfig 进程配置
type ServerConfig struct {
	Name string `mapstructure:"name"`
	// Migrate 启动时建表
	Migrate bool `mapstructure:"migrate"`
}

// CatalogConfig 静态配置表
type CatalogConfig struct {
	// Dir 为空时使用内置配置
	Dir string `mapstructure:"dir"`
}

// RedisConfig Enabled 为 false 时不使用缓存与分布式限流
type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

// KafkaConfig Enabled 为 false 时只写事件表
type KafkaConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	kafka.Config `mapstructure:",squash"`
}

// Config maskpack 进程的完整配置
type Config struct {
	Server ServerConfig  `mapstructure:"server"`
	Log    logger.Config `mapstructure:"log"`

	Postgres postgres.Config `mapstructure:"postgres"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Kafka    KafkaConfig     `mapstructure:"kafka"`

	Otel       otel.Config       `mapstructure:"otel"`
	Sentry     sentry.Config     `mapstructure:"sentry"`
	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Metrics    metrics.Config    `mapstructure:"metrics"`

	IDGen   idgen.Config  `mapstructure:"idgen"`
	Catalog CatalogConfig `mapstructure:"catalog"`

	// 以下配置与默认值合并后再校验
	Balance   gameconfig.BalanceConfig `mapstructure:"balance" validate:"-"`
	Service   service.Config           `mapstructure:"service" validate:"-"`
	Scheduler scheduler.Config         `mapstructure:"scheduler" validate:"-"`
}
