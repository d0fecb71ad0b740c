package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/events"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/ratelimit"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
	"github.com/lk2023060901/maskpack/pkg/config"
	"github.com/lk2023060901/maskpack/pkg/idgen"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config 服务配置
type Config struct {
	// SeedSalt 拼接在开包种子末尾
	SeedSalt        string        `mapstructure:"seed_salt"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
	ReplayCacheTTL  time.Duration `mapstructure:"replay_cache_ttl"`
	// Store postgres 或 memory
	Store  string        `mapstructure:"store" validate:"oneof=postgres memory"`
	Events events.Config `mapstructure:"events"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		SeedSalt:        "maskpack",
		RateLimitWindow: ratelimit.DefaultWindow,
		ReplayCacheTTL:  24 * time.Hour,
		Store:           StorePostgres,
		Events:          *events.DefaultConfig(),
	}
}

// MergeConfig 合并默认配置并校验
func MergeConfig(cfg *Config) (*Config, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge service config")
	}
	if err := config.Validate(newCfg); err != nil {
		return nil, err
	}
	return newCfg, nil
}

// Clock 当前时间
type Clock func() time.Time

// ReplayCache 开包结果缓存，*dao.CacheDAO 满足该接口
type ReplayCache interface {
	GetOpenResult(ctx context.Context, userID, clientRequestID string) (*model.OpenResult, error)
	SetOpenResult(ctx context.Context, userID, clientRequestID string, result *model.OpenResult, ttl time.Duration) error
}

// Deps 服务依赖
// Store Catalog Metrics Logger 必填，其余为空时使用默认实现
type Deps struct {
	Store     store.Store
	Catalog   *gameconfig.Catalog
	Limiter   ratelimit.Limiter
	Replay    ReplayCache
	Publisher events.Publisher
	IDGen     idgen.Generator
	Metrics   *metrics.GameMetrics
	Tracer    trace.Tracer
	Logger    logger.Logger
	Clock     Clock
}

func (d *Deps) normalize(cfg *Config) (*Deps, error) {
	if d == nil {
		return nil, errors.New("service: deps is nil")
	}
	switch {
	case d.Store == nil:
		return nil, errors.New("service: store is required")
	case d.Catalog == nil:
		return nil, errors.New("service: catalog is required")
	case d.Metrics == nil:
		return nil, errors.New("service: metrics is required")
	case d.Logger == nil:
		return nil, errors.New("service: logger is required")
	}

	n := *d
	if n.Limiter == nil {
		n.Limiter = ratelimit.NewLocal(cfg.RateLimitWindow)
	}
	if n.Publisher == nil {
		n.Publisher = events.Nop{}
	}
	if n.IDGen == nil {
		n.IDGen = idgen.NewSequence(1)
	}
	if n.Tracer == nil {
		n.Tracer = noop.NewTracerProvider().Tracer("maskpack")
	}
	if n.Clock == nil {
		n.Clock = time.Now
	}
	return &n, nil
}

// lockUserProgress 按目录顺序锁定玩家的全部进度行，缺失的行跳过
func lockUserProgress(ctx context.Context, tx store.GameStore, c *gameconfig.Catalog, userID string) ([]*model.UserPackProgress, error) {
	packs := c.Packs()
	out := make([]*model.UserPackProgress, 0, len(packs))
	for _, p := range packs {
		progress, err := tx.LockUserPackProgress(ctx, userID, p.PackID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, errors.Wrapf(err, "lock progress %s", p.PackID)
		}
		out = append(out, progress)
	}
	return out, nil
}

// ownedMask 读取玩家持有的面具，未持有返回 ErrNotFound
func ownedMask(ctx context.Context, tx store.GameStore, userID, maskID string) (*model.UserMask, error) {
	m, err := tx.GetUserMask(ctx, userID, maskID)
	if err != nil {
		return nil, notFound(err)
	}
	if !m.Owned() {
		return nil, errors.Wrapf(ErrNotFound, "mask %s not owned", maskID)
	}
	return m, nil
}
