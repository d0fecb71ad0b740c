package prometheus

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/pkg/config"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client 指标注册表与 HTTP 暴露
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	server   *http.Server
	listener net.Listener
}

// New 创建 Prometheus 客户端
func New(cfg *Config, l logger.Logger) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge prometheus config")
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   newCfg,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("prometheus"),
	}
	if newCfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if newCfg.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return c, nil
}

// Namespace 指标命名空间
func (c *Client) Namespace() string {
	return c.config.Namespace
}

// Registry 底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 指标 HTTP Handler
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start 启动独立的指标 HTTP 服务
func (c *Client) Start() error {
	if !c.config.HTTPServer.Enabled {
		return nil
	}

	path := c.config.HTTPServer.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())

	ln, err := net.Listen("tcp", c.config.HTTPServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", c.config.HTTPServer.Addr)
	}
	c.listener = ln
	c.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server stopped", "error", err)
		}
	}()
	c.logger.Info("metrics server listening", "addr", ln.Addr().String(), "path", path)
	return nil
}

// Addr 实际监听地址，未启动时为空
func (c *Client) Addr() string {
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

// Stop 停止指标 HTTP 服务
func (c *Client) Stop() error {
	if c.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}
