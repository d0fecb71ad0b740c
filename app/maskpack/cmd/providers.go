package main

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/dao"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/events"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/ratelimit"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/repository"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/scheduler"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/service"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store/memory"
	"github.com/lk2023060901/maskpack/pkg/app"
	"github.com/lk2023060901/maskpack/pkg/database/postgres"
	"github.com/lk2023060901/maskpack/pkg/database/redis"
	"github.com/lk2023060901/maskpack/pkg/idgen"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/lk2023060901/maskpack/pkg/mq/kafka"
	"github.com/lk2023060901/maskpack/pkg/otel"
	"github.com/lk2023060901/maskpack/pkg/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const migrateTimeout = 30 * time.Second

// Application 应用及对外暴露的服务，传输层通过 Services 接入
type Application struct {
	*app.BaseApp
	Services *service.Services
	// Limiter 配置热更新时调整窗口
	Limiter ratelimit.Limiter
}

// provideBaseApp 提供应用生命周期
func provideBaseApp(cfg *Config, l logger.Logger) *app.BaseApp {
	name := cfg.Server.Name
	if name == "" {
		name = app.AppName
	}
	return app.NewBaseApp(app.WithName(name), app.WithLogger(l))
}

// provideBalance 提供数值配置
func provideBalance(cfg *Config) (*gameconfig.BalanceConfig, error) {
	return gameconfig.MergeBalance(&cfg.Balance)
}

// provideCatalog 提供静态配置表
func provideCatalog(cfg *Config, b *gameconfig.BalanceConfig, l logger.Logger) (*gameconfig.Catalog, error) {
	return gameconfig.Load(cfg.Catalog.Dir, b, l)
}

// provideServiceConfig 提供服务配置
func provideServiceConfig(cfg *Config) (*service.Config, error) {
	return service.MergeConfig(&cfg.Service)
}

// provideMetrics 提供业务指标
func provideMetrics(cfg *Config) (*metrics.GameMetrics, error) {
	return metrics.New(&cfg.Metrics)
}

// providePrometheus 提供 Prometheus 客户端并注册业务指标
func providePrometheus(cfg *Config, l logger.Logger, m *metrics.GameMetrics) (*prometheus.Client, error) {
	client, err := prometheus.New(&cfg.Prometheus, l)
	if err != nil {
		return nil, err
	}
	if err := m.Register(client.Registry()); err != nil {
		return nil, errors.Wrap(err, "register game metrics")
	}
	return client, nil
}

// provideTracerProvider 提供 TracerProvider
func provideTracerProvider(cfg *Config) (*otel.TracerProvider, func(), error) {
	tp, err := otel.New(&cfg.Otel)
	if err != nil {
		return nil, nil, err
	}
	return tp, func() { _ = tp.Close() }, nil
}

// provideTracer 提供服务层 Tracer
func provideTracer(tp *otel.TracerProvider) trace.Tracer {
	return tp.Tracer("maskpack/service")
}

// provideStore 按配置提供 Postgres 或内存存储
func provideStore(cfg *Config, svcCfg *service.Config, l logger.Logger, m *metrics.GameMetrics) (store.Store, func(), error) {
	if svcCfg.Store == service.StoreMemory {
		l.Warn("using in-memory store, data is lost on exit")
		return memory.New(), func() {}, nil
	}

	client, err := postgres.New(&cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Server.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		defer cancel()
		if err := repository.Migrate(ctx, client); err != nil {
			client.Close()
			return nil, nil, errors.Wrap(err, "migrate schema")
		}
		l.Info("schema migrated", "statements", len(repository.Statements()))
	}
	return repository.NewGameRepository(client, l, m), client.Close, nil
}

// provideRedis 未启用时返回 nil
func provideRedis(cfg *Config) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Redis.Config)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// provideReplayCache Redis 未启用时不缓存开包结果
func provideReplayCache(rdb *redis.Client, l logger.Logger, m *metrics.GameMetrics) service.ReplayCache {
	if rdb == nil {
		return nil
	}
	return dao.NewCacheDAO(rdb, l, m)
}

// provideLocalLimiter 提供进程内限流器
func provideLocalLimiter(svcCfg *service.Config) *ratelimit.Local {
	return ratelimit.NewLocal(svcCfg.RateLimitWindow)
}

// provideLimiter Redis 启用时多实例共享限流
func provideLimiter(svcCfg *service.Config, local *ratelimit.Local, rdb *redis.Client) ratelimit.Limiter {
	if rdb != nil {
		return ratelimit.NewRedis(rdb, svcCfg.RateLimitWindow)
	}
	return local
}

// provideIDGen 提供开包记录 ID 生成器
func provideIDGen(cfg *Config) (idgen.Generator, error) {
	return idgen.NewSonyflake(&cfg.IDGen)
}

// providePublisher Kafka 未启用时事件只写事件表
func providePublisher(cfg *Config, svcCfg *service.Config, l logger.Logger, m *metrics.GameMetrics) (events.Publisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return events.Nop{}, func() {}, nil
	}

	producer, err := kafka.NewProducer(&cfg.Kafka.Config)
	if err != nil {
		return nil, nil, err
	}
	dispatcher, err := events.NewDispatcher(&svcCfg.Events, producer, l, m)
	if err != nil {
		_ = producer.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = dispatcher.Close()
		_ = producer.Close()
	}
	return dispatcher, cleanup, nil
}

// provideClock 提供系统时钟
func provideClock() service.Clock {
	return time.Now
}

// provideScheduler 提供定时任务
func provideScheduler(cfg *Config, local *ratelimit.Local, l logger.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New(&cfg.Scheduler, local, l)
}

// provideApplication 组装应用
func provideApplication(
	base *app.BaseApp,
	promClient *prometheus.Client,
	sched *scheduler.Scheduler,
	services *service.Services,
	limiter ratelimit.Limiter,
) *Application {
	base.AppendServer(promClient, sched)
	return &Application{BaseApp: base, Services: services, Limiter: limiter}
}
