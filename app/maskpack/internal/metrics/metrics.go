package metrics

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
)

// Config 指标配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "maskpack",
	}
}

// GameMetrics 开包服务指标
type GameMetrics struct {
	config *Config

	// 业务指标
	PackOpenTotal    *prometheus.CounterVec   // 开包总数（按结果）
	PackOpenDuration *prometheus.HistogramVec // 开包延迟
	DrawTotal        *prometheus.CounterVec   // 抽取结果（按稀有度）
	ReplayTotal      *prometheus.CounterVec   // 幂等重放（按来源）
	PityTriggered    prometheus.Counter       // 保底触发次数
	MutationTotal    *prometheus.CounterVec   // 装备/换色（按操作、结果）
	EventsPublished  *prometheus.CounterVec   // 事件投递（按结果）

	// 数据库指标
	DBQueryTotal    *prometheus.CounterVec   // 数据库查询总数（按操作、结果）
	DBQueryDuration *prometheus.HistogramVec // 数据库查询延迟

	// 缓存指标
	CacheHitTotal  *prometheus.CounterVec // 缓存命中（按缓存类型）
	CacheMissTotal *prometheus.CounterVec // 缓存未命中（按缓存类型）

	// 内部统计
	opened   atomic.Int64
	rejected atomic.Int64
	replayed atomic.Int64
}

// New 创建指标
func New(cfg *Config) (*GameMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge metrics config")
	}
	ns := newCfg.Namespace

	return &GameMetrics{
		config: newCfg,

		PackOpenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "pack_opens_total",
				Help:      "开包请求总数",
			},
			[]string{"result"}, // result: opened/replayed/not_ready/rate_limited/failed
		),
		PackOpenDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "pack_open_duration_seconds",
				Help:      "开包处理延迟（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
			},
			[]string{"result"},
		),
		DrawTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "draws_total",
				Help:      "抽取面具总数",
			},
			[]string{"rarity"},
		),
		ReplayTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "pack_open_replays_total",
				Help:      "幂等重放次数",
			},
			[]string{"source"}, // source: cache/store/race
		),
		PityTriggered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "pity_triggered_total",
				Help:      "保底触发次数",
			},
		),
		MutationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "mask_mutations_total",
				Help:      "装备与换色操作总数",
			},
			[]string{"operation", "result"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "events_published_total",
				Help:      "事件投递总数",
			},
			[]string{"result"},
		),

		DBQueryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "db_queries_total",
				Help:      "数据库查询总数",
			},
			[]string{"operation", "result"}, // operation: select/insert/update/upsert/lock
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "db_query_duration_seconds",
				Help:      "数据库查询延迟（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),

		CacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_hits_total",
				Help:      "缓存命中总数",
			},
			[]string{"cache_type"},
		),
		CacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_misses_total",
				Help:      "缓存未命中总数",
			},
			[]string{"cache_type"},
		),
	}, nil
}

// Register 注册指标到 Prometheus Registry
func (m *GameMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.PackOpenTotal,
		m.PackOpenDuration,
		m.DrawTotal,
		m.ReplayTotal,
		m.PityTriggered,
		m.MutationTotal,
		m.EventsPublished,
		m.DBQueryTotal,
		m.DBQueryDuration,
		m.CacheHitTotal,
		m.CacheMissTotal,
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordPackOpen 记录开包结果
func (m *GameMetrics) RecordPackOpen(result string, duration float64) {
	switch result {
	case "opened":
		m.opened.Add(1)
	case "replayed":
		m.replayed.Add(1)
	default:
		m.rejected.Add(1)
	}
	m.PackOpenTotal.WithLabelValues(result).Inc()
	m.PackOpenDuration.WithLabelValues(result).Observe(duration)
}

// RecordDraw 记录抽取稀有度
func (m *GameMetrics) RecordDraw(rarity string) {
	m.DrawTotal.WithLabelValues(rarity).Inc()
}

// RecordReplay 记录幂等重放
func (m *GameMetrics) RecordReplay(source string) {
	m.ReplayTotal.WithLabelValues(source).Inc()
}

// RecordPityTriggered 记录保底触发
func (m *GameMetrics) RecordPityTriggered() {
	m.PityTriggered.Inc()
}

// RecordMutation 记录装备/换色
func (m *GameMetrics) RecordMutation(operation string, success bool) {
	m.MutationTotal.WithLabelValues(operation, resultLabel(success)).Inc()
}

// RecordEventPublish 记录事件投递
func (m *GameMetrics) RecordEventPublish(success bool, count int) {
	m.EventsPublished.WithLabelValues(resultLabel(success)).Add(float64(count))
}

// RecordDBQuery 记录数据库查询
func (m *GameMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	m.DBQueryTotal.WithLabelValues(operation, resultLabel(success)).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheHit 记录缓存命中
func (m *GameMetrics) RecordCacheHit(cacheType string) {
	m.CacheHitTotal.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *GameMetrics) RecordCacheMiss(cacheType string) {
	m.CacheMissTotal.WithLabelValues(cacheType).Inc()
}

// Stats 内部统计
type Stats struct {
	Opened   int64 `json:"opened"`
	Rejected int64 `json:"rejected"`
	Replayed int64 `json:"replayed"`
}

// GetStats 获取统计数据
func (m *GameMetrics) GetStats() Stats {
	return Stats{
		Opened:   m.opened.Load(),
		Rejected: m.rejected.Load(),
		Replayed: m.replayed.Load(),
	}
}

// GetConfig 获取配置
func (m *GameMetrics) GetConfig() *Config {
	return m.config
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
