package scheduler

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/pkg/config"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Config 定时任务配置
type Config struct {
	// PruneSchedule 清理空闲限流器的 cron 表达式
	PruneSchedule string        `mapstructure:"prune_schedule"`
	LimiterIdle   time.Duration `mapstructure:"limiter_idle"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		PruneSchedule: "@every 5m",
		LimiterIdle:   10 * time.Minute,
		StopTimeout:   5 * time.Second,
	}
}

// Pruner *ratelimit.Local 满足该接口
type Pruner interface {
	Prune(now time.Time, idle time.Duration) int
	Len() int
}

// Scheduler 后台定时任务
type Scheduler struct {
	cfg    *Config
	cron   *cron.Cron
	pruner Pruner
	logger logger.Logger
	now    func() time.Time
}

// New 创建定时任务
func New(cfg *Config, p Pruner, l logger.Logger) (*Scheduler, error) {
	if p == nil {
		return nil, errors.New("scheduler: pruner is required")
	}
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge scheduler config")
	}

	s := &Scheduler{
		cfg:    newCfg,
		cron:   cron.New(),
		pruner: p,
		logger: l.Named("scheduler"),
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(newCfg.PruneSchedule, s.pruneLimiters); err != nil {
		return nil, errors.Wrapf(err, "schedule limiter prune %q", newCfg.PruneSchedule)
	}
	return s, nil
}

func (s *Scheduler) pruneLimiters() {
	removed := s.pruner.Prune(s.now(), s.cfg.LimiterIdle)
	if removed > 0 {
		s.logger.Debug("pruned idle rate limiters", "removed", removed, "remaining", s.pruner.Len())
	}
}

// Start 启动，实现 app.Server
func (s *Scheduler) Start() error {
	s.cron.Start()
	s.logger.Info("scheduler started", "prune_schedule", s.cfg.PruneSchedule)
	return nil
}

// Stop 等待正在执行的任务结束
func (s *Scheduler) Stop() error {
	ctx := s.cron.Stop()
	timeout, cancel := context.WithTimeout(context.Background(), s.cfg.StopTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return nil
	case <-timeout.Done():
		return errors.New("scheduler: stop timeout")
	}
}
