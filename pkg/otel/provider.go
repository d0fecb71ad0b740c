package otel

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerProvider 追踪提供者
type TracerProvider struct {
	config   *Config
	provider *sdktrace.TracerProvider
}

// Option TracerProvider 选项
type Option func(*options)

type options struct {
	stdout   io.Writer
	exporter sdktrace.SpanExporter
}

// WithStdoutWriter stdout 导出器的输出目标
func WithStdoutWriter(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithExporter 直接指定导出器，忽略 ExporterType
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}

// New 创建追踪提供者并注册为全局 TracerProvider
func New(cfg *Config, opts ...Option) (*TracerProvider, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge otel config")
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	o := options{stdout: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	exporter := o.exporter
	if exporter == nil {
		exporter, err = createExporter(context.Background(), newCfg, o.stdout)
		if err != nil {
			return nil, err
		}
	}
	if exporter == nil {
		return &TracerProvider{config: newCfg}, nil
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(newCfg.ServiceName)}
	for k, v := range newCfg.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(newCfg.BatchTimeout)),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(newCfg.SampleRatio))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{config: newCfg, provider: provider}, nil
}

// Tracer 获取 Tracer，未启用导出时返回 noop Tracer
func (p *TracerProvider) Tracer(name string) trace.Tracer {
	if p == nil || p.provider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.provider.Tracer(name)
}

// ForceFlush 立即导出缓存的 span
func (p *TracerProvider) ForceFlush(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	return p.provider.ForceFlush(ctx)
}

// Close 导出剩余 span 并关闭
func (p *TracerProvider) Close() error {
	if p.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ShutdownTimeout)
	defer cancel()
	return p.provider.Shutdown(ctx)
}

// EndSpan 记录错误并结束 span
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
