package main

import (
	"fmt"
	"os"

	"github.com/lk2023060901/maskpack/pkg/app"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/lk2023060901/maskpack/pkg/sentry"
)

func main() {
	var cfg Config

	// 1. 加载配置
	path, err := app.LoadConfig(os.Args[1:], &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Sentry 与主日志，error 级别日志上报 Sentry
	reporter, err := sentry.New(cfg.Sentry, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init sentry: %v\n", err)
		os.Exit(1)
	}
	l, err := logger.New(&cfg.Log, logger.WithHooks(reporter.LogHook()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	l.Info("config loaded", "path", path, "redis", cfg.Redis.Enabled, "kafka", cfg.Kafka.Enabled, "sentry", reporter.Enabled())

	// 3. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		_ = reporter.Close()
		os.Exit(1)
	}
	application.AppendCloser(reporter)

	// 配置文件变化时热更新限流窗口
	if err := watchServiceConfig(path, application.Limiter, l); err != nil {
		l.Warn("config hot reload disabled", "error", err)
	}

	// 4. 运行到收到退出信号
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
	cleanup()
}
