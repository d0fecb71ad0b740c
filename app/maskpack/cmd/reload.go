package main

import (
	"github.com/lk2023060901/maskpack/app/maskpack/internal/ratelimit"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/service"
	"github.com/lk2023060901/maskpack/pkg/app"
	"github.com/lk2023060901/maskpack/pkg/logger"
)

const serviceSection = "service"

// watchServiceConfig 配置文件变化时热更新开包限流窗口
func watchServiceConfig(path string, limiter ratelimit.Limiter, l logger.Logger) error {
	setter, ok := limiter.(ratelimit.WindowSetter)
	if !ok {
		return nil
	}
	_, err := app.WatchSection(path, serviceSection, reloadService(setter, l))
	return err
}

// reloadService 返回合并校验后应用新限流窗口的回调，无效配置保持原值
func reloadService(setter ratelimit.WindowSetter, l logger.Logger) func(*service.Config, error) {
	l = l.Named("reload")
	return func(cfg *service.Config, err error) {
		if err != nil {
			l.Warn("reload service config failed", "error", err)
			return
		}
		newCfg, err := service.MergeConfig(cfg)
		if err != nil {
			l.Warn("reloaded service config is invalid, keeping current", "error", err)
			return
		}
		setter.SetWindow(newCfg.RateLimitWindow)
		l.Info("rate limit window reloaded", "window", newCfg.RateLimitWindow)
	}
}
