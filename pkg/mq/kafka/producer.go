package kafka

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/pkg/config"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Message 待发布消息
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// messageWriter kafka.Writer 的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerStats 生产者统计
type ProducerStats struct {
	Produced  int64
	Succeeded int64
	Failed    int64
}

// Producer Kafka 生产者
type Producer struct {
	topic  string
	writer messageWriter

	produced  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	closed    atomic.Bool
}

// NewProducer 创建生产者
func NewProducer(cfg *Config) (*Producer, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge kafka config")
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(newCfg.Brokers...),
		Topic:                  newCfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              newCfg.BatchSize,
		BatchTimeout:           newCfg.BatchTimeout,
		WriteTimeout:           newCfg.WriteTimeout,
		MaxAttempts:            newCfg.MaxRetries + 1,
		RequiredAcks:           kafka.RequiredAcks(newCfg.RequiredAcks),
		Compression:            parseCompression(newCfg.Compression),
		AllowAutoTopicCreation: true,
	}
	return newProducer(newCfg.Topic, writer), nil
}

func newProducer(topic string, w messageWriter) *Producer {
	return &Producer{topic: topic, writer: w}
}

func parseCompression(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Gzip
	case "snappy":
		return compress.Snappy
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return 0
	}
}

// Topic 目标 topic
func (p *Producer) Topic() string {
	return p.topic
}

// Publish 同步发布消息
func (p *Producer) Publish(ctx context.Context, msgs ...*Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if len(msgs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		km := kafka.Message{Key: msg.Key, Value: msg.Value}
		for k, v := range msg.Headers {
			km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		kafkaMsgs = append(kafkaMsgs, km)
	}

	n := int64(len(msgs))
	p.produced.Add(n)
	if err := p.writer.WriteMessages(ctx, kafkaMsgs...); err != nil {
		p.failed.Add(n)
		return errors.Wrapf(err, "publish to %s", p.topic)
	}
	p.succeeded.Add(n)
	return nil
}

// Stats 统计快照
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		Produced:  p.produced.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
