package sentry

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"go.uber.org/zap/zapcore"
)

// Config Sentry 配置，DSN 为空时不上报
type Config struct {
	DSN          string            `mapstructure:"dsn"`
	Environment  string            `mapstructure:"environment"`
	Release      string            `mapstructure:"release"`
	SampleRate   float64           `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	FlushTimeout time.Duration     `mapstructure:"flush_timeout"`
	Tags         map[string]string `mapstructure:"tags"`
}

// Client Sentry 客户端，持有独立的 Hub
type Client struct {
	hub *sentry.Hub
	cfg Config
}

// New 创建 Sentry 客户端，transport 为 nil 时使用默认 HTTP 传输
func New(cfg Config, transport sentry.Transport) (*Client, error) {
	if cfg.DSN == "" {
		return &Client{cfg: cfg}, nil
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.FlushTimeout == 0 {
		cfg.FlushTimeout = 2 * time.Second
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  cfg.SampleRate,
		Transport:   transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create sentry client")
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range cfg.Tags {
			scope.SetTag(k, v)
		}
	})
	return &Client{hub: hub, cfg: cfg}, nil
}

// Enabled 是否会上报
func (c *Client) Enabled() bool {
	return c != nil && c.hub != nil
}

// CaptureException 上报错误
func (c *Client) CaptureException(err error, tags map[string]string) {
	if !c.Enabled() || err == nil {
		return
	}
	c.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		c.hub.CaptureException(err)
	})
}

// Close 刷新缓存事件
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	if !c.hub.Flush(c.cfg.FlushTimeout) {
		return errors.New("sentry flush timeout")
	}
	return nil
}

// LogHook 将 error 级别日志上报为 Sentry 事件
// 字符串类型的字段写入 tag，error 类型字段作为异常
func (c *Client) LogHook() logger.Hook {
	return logger.HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		if !c.Enabled() || entry.Level < zapcore.ErrorLevel {
			return true
		}

		tags := map[string]string{"logger": entry.LoggerName}
		var cause error
		for _, f := range fields {
			switch f.Type {
			case zapcore.StringType:
				tags[f.Key] = f.String
			case zapcore.ErrorType:
				if err, ok := f.Interface.(error); ok {
					cause = err
				}
			}
		}

		err := errors.New(entry.Message)
		if cause != nil {
			err = errors.Wrap(cause, entry.Message)
		}
		c.CaptureException(err, tags)
		return true
	})
}
