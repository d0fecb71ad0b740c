//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/service"
	"github.com/lk2023060901/maskpack/pkg/logger"
)

func InitApp(cfg *Config, l logger.Logger) (*Application, func(), error) {
	panic(wire.Build(
		// 1. 应用生命周期
		provideBaseApp,

		// 2. 配置表与服务配置
		provideBalance,
		provideCatalog,
		provideServiceConfig,

		// 3. 指标与链路追踪
		provideMetrics,
		providePrometheus,
		provideTracerProvider,
		provideTracer,

		// 4. 存储、缓存与限流
		provideStore,
		provideRedis,
		provideReplayCache,
		provideLocalLimiter,
		provideLimiter,
		provideIDGen,

		// 5. 事件投递
		providePublisher,

		// 6. 服务层
		provideClock,
		wire.Struct(new(service.Deps), "*"),
		service.New,

		// 7. 定时任务与组装
		provideScheduler,
		provideApplication,
	))
}
