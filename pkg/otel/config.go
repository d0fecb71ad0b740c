package otel

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ExporterType 导出器类型
type ExporterType string

const (
	ExporterTypeOTLPHTTP ExporterType = "otlp-http"
	ExporterTypeOTLPGRPC ExporterType = "otlp-grpc"
	ExporterTypeStdout   ExporterType = "stdout"
	ExporterTypeNoop     ExporterType = "noop"
)

var (
	ErrInvalidServiceName  = errors.New("otel: service name is required")
	ErrInvalidSamplerRatio = errors.New("otel: sampler ratio must be within [0, 1]")
)

// Config TracerProvider 配置
type Config struct {
	ServiceName  string       `mapstructure:"service_name"`
	ExporterType ExporterType `mapstructure:"exporter_type" validate:"omitempty,oneof=otlp-http otlp-grpc stdout noop"`
	// Endpoint OTLP HTTP 默认 localhost:4318，gRPC 默认 localhost:4317
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`

	// SampleRatio 根 span 采样比例，子 span 跟随父 span
	SampleRatio float64 `mapstructure:"sample_ratio"`

	BatchTimeout    time.Duration     `mapstructure:"batch_timeout"`
	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
	Attributes      map[string]string `mapstructure:"attributes"`
}

// DefaultConfig 默认配置，不导出任何 span
func DefaultConfig() *Config {
	return &Config{
		ServiceName:     "maskpack",
		ExporterType:    ExporterTypeNoop,
		Endpoint:        "localhost:4318",
		Insecure:        true,
		SampleRatio:     1.0,
		BatchTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrInvalidServiceName
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return ErrInvalidSamplerRatio
	}
	return nil
}
