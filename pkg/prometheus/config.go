package prometheus

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("prometheus: invalid config")

// Config Prometheus 配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `mapstructure:"namespace"`

	HTTPServer HTTPServerConfig `mapstructure:"http_server"`

	EnableGoCollector      bool `mapstructure:"enable_go_collector"`
	EnableProcessCollector bool `mapstructure:"enable_process_collector"`
}

// HTTPServerConfig 指标 HTTP 服务配置
type HTTPServerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "maskpack",
		HTTPServer: HTTPServerConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
			Timeout: 10 * time.Second,
		},
		EnableGoCollector:      true,
		EnableProcessCollector: true,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return errors.Wrap(ErrInvalidConfig, "namespace is required")
	}
	if c.HTTPServer.Enabled && c.HTTPServer.Addr == "" {
		return errors.Wrap(ErrInvalidConfig, "http_server.addr is required")
	}
	return nil
}
