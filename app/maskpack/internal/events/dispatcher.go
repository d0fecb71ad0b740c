package events

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/config"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/lk2023060901/maskpack/pkg/mq/kafka"
	"github.com/panjf2000/ants/v2"
)

// MessagePublisher *kafka.Producer 满足该接口
type MessagePublisher interface {
	Publish(ctx context.Context, msgs ...*kafka.Message) error
}

// Config 投递配置
type Config struct {
	PoolSize       int           `mapstructure:"pool_size" validate:"min=1"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	CloseTimeout   time.Duration `mapstructure:"close_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		PoolSize:       16,
		PublishTimeout: 5 * time.Second,
		CloseTimeout:   10 * time.Second,
	}
}

// Dispatcher 使用协程池异步投递
type Dispatcher struct {
	cfg      *Config
	pool     *ants.Pool
	producer MessagePublisher
	logger   logger.Logger
	metrics  *metrics.GameMetrics
	wg       sync.WaitGroup
}

var _ Publisher = (*Dispatcher)(nil)

// NewDispatcher 创建投递器
func NewDispatcher(cfg *Config, producer MessagePublisher, l logger.Logger, m *metrics.GameMetrics) (*Dispatcher, error) {
	if producer == nil {
		return nil, errors.New("events: producer is required")
	}
	if l == nil {
		return nil, errors.New("events: logger is required")
	}
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge events config")
	}
	if err := config.Validate(newCfg); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(newCfg.PoolSize, ants.WithPanicHandler(func(p any) {
		l.Error("event publish panic", "panic", p)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create event pool")
	}

	return &Dispatcher{
		cfg:      newCfg,
		pool:     pool,
		producer: producer,
		logger:   l.Named("events"),
		metrics:  m,
	}, nil
}

// Publish 提交投递任务，不等待结果
// 投递使用独立的超时 ctx，请求 ctx 结束不影响已提交的事件
func (d *Dispatcher) Publish(_ context.Context, evts ...*model.Event) {
	if len(evts) == 0 {
		return
	}

	msgs := make([]*kafka.Message, 0, len(evts))
	for _, evt := range evts {
		msg, err := EncodeMessage(evt)
		if err != nil {
			d.logger.Error("encode event failed", "kind", evt.Kind, "user_id", evt.UserID, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return
	}

	d.wg.Add(1)
	err := d.pool.Submit(func() {
		defer d.wg.Done()
		d.send(msgs)
	})
	if err != nil {
		d.wg.Done()
		d.logger.Warn("submit event publish failed", "count", len(msgs), "error", err)
		d.record(false, len(msgs))
	}
}

func (d *Dispatcher) send(msgs []*kafka.Message) {
	ctx := context.Background()
	if d.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.PublishTimeout)
		defer cancel()
	}

	if err := d.producer.Publish(ctx, msgs...); err != nil {
		d.logger.Warn("publish events failed", "count", len(msgs), "error", err)
		d.record(false, len(msgs))
		return
	}
	d.record(true, len(msgs))
}

func (d *Dispatcher) record(success bool, n int) {
	if d.metrics != nil {
		d.metrics.RecordEventPublish(success, n)
	}
}

// Close 等待已提交的任务完成后释放协程池
func (d *Dispatcher) Close() error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	timeout := d.cfg.CloseTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().CloseTimeout
	}
	select {
	case <-done:
	case <-time.After(timeout):
		d.logger.Warn("event dispatcher close timeout", "timeout", timeout)
	}
	return d.pool.ReleaseTimeout(timeout)
}
