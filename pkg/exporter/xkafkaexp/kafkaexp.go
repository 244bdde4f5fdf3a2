package xkafkaexp

//go:generate mockgen -source=kafkaexp.go -destination=mock_producer_test.go -package=xkafkaexp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/exporter/xresilient"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const exporterName = "kafka_exporter"

// DefaultFlushTimeout Flush 与 Shutdown 等待投递的默认上限
const DefaultFlushTimeout = 10 * time.Second

var (
	// ErrNilProducer producer 为 nil
	ErrNilProducer = errors.New("xkafkaexp: nil producer")

	// ErrEmptyTopic 未配置 topic
	ErrEmptyTopic = errors.New("xkafkaexp: empty topic")

	// ErrUndelivered Flush 超时后仍有消息未投递
	ErrUndelivered = errors.New("xkafkaexp: messages still in queue")
)

// Producer *kafka.Producer 中导出器用到的方法。
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	Close()
}

var _ Producer = (*kafka.Producer)(nil)

// Config 导出器配置
type Config struct {
	// Topic 目标 topic，必填
	Topic string

	// FlushTimeout 默认 DefaultFlushTimeout
	FlushTimeout time.Duration
}

// Exporter 每个 span 一条 Kafka 消息，key 为 trace ID，同一 trace 落在同一分区。
//
// Export 等待本批全部投递报告后返回。部分失败时整批按最严重的错误分类，
// 上游重试可能产生重复消息。
type Exporter struct {
	base     *xbackend.Base
	producer Producer
	cfg      Config
	owned    bool
}

var _ xsdk.SpanExporter = (*Exporter)(nil)

// New 使用调用方管理的 producer，Shutdown 只做 Flush 不关闭它。
func New(producer Producer, cfg Config, opts ...xbackend.Option) (*Exporter, error) {
	if producer == nil {
		return nil, ErrNilProducer
	}
	if cfg.Topic == "" {
		return nil, ErrEmptyTopic
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultFlushTimeout
	}
	base, err := xbackend.NewBase(exporterName, opts...)
	if err != nil {
		return nil, err
	}
	return &Exporter{base: base, producer: producer, cfg: cfg}, nil
}

// NewFromConfig 按 librdkafka 配置创建 producer，Shutdown 时关闭。
func NewFromConfig(cm *kafka.ConfigMap, cfg Config, opts ...xbackend.Option) (*Exporter, error) {
	if cfg.Topic == "" {
		return nil, ErrEmptyTopic
	}
	p, err := kafka.NewProducer(cm)
	if err != nil {
		return nil, fmt.Errorf("xkafkaexp: create producer: %w", err)
	}
	e, err := New(p, cfg, opts...)
	if err != nil {
		p.Close()
		return nil, err
	}
	e.owned = true
	return e, nil
}

// Export 实现 xsdk.SpanExporter。
func (e *Exporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	return e.base.Export(ctx, spans, e.send)
}

func (e *Exporter) send(ctx context.Context, spans []xsdk.SpanData) error {
	records, err := xbackend.EncodeJSON(spans)
	if err != nil {
		return err
	}

	// 缓冲足以容纳全部投递报告，ctx 提前结束时回调不会阻塞
	delivery := make(chan kafka.Event, len(records))
	topic := e.cfg.Topic
	queued := 0
	var errs []error
	for i, r := range records {
		msg := &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
			Key:            []byte(spans[i].SpanContext.TraceID().String()),
			Value:          r,
			Headers:        []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
		}
		if err := e.producer.Produce(msg, delivery); err != nil {
			errs = append(errs, classify(err))
			continue
		}
		queued++
	}

	for range queued {
		select {
		case <-ctx.Done():
			return errors.Join(append(errs, ctx.Err())...)
		case ev := <-delivery:
			if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				errs = append(errs, classify(m.TopicPartition.Error))
			}
		}
	}
	return worst(errs)
}

// worst 有可重试错误时整批可重试，否则返回首个永久错误。
func worst(errs []error) error {
	var permanent error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if xresilient.IsRetryable(err) {
			return err
		}
		if permanent == nil {
			permanent = err
		}
	}
	return permanent
}

// classify 按 librdkafka 错误码区分：致命错误、消息过大、鉴权失败不可重试。
func classify(err error) error {
	var kerr kafka.Error
	if !errors.As(err, &kerr) {
		return err
	}
	if kerr.IsFatal() {
		return xbackend.Permanent(err)
	}
	switch kerr.Code() {
	case kafka.ErrMsgSizeTooLarge, kafka.ErrInvalidMsg, kafka.ErrInvalidArg,
		kafka.ErrTopicAuthorizationFailed, kafka.ErrClusterAuthorizationFailed:
		return xbackend.Permanent(err)
	default:
		return err
	}
}

// Flush 等待 producer 队列清空，超时返回 ExportFailureRetryable。
func (e *Exporter) Flush(ctx context.Context) xsdk.ExportResult {
	if e.base.Stopped() {
		return xsdk.ExportSuccess
	}
	if err := e.flush(ctx); err != nil {
		e.base.Logger().Warn(ctx, "flush incomplete")
		return xsdk.ExportFailureRetryable
	}
	return xsdk.ExportSuccess
}

func (e *Exporter) flush(ctx context.Context) error {
	timeout := e.cfg.FlushTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	if remaining := e.producer.Flush(int(max(timeout, 0).Milliseconds())); remaining > 0 {
		return fmt.Errorf("%w: %d", ErrUndelivered, remaining)
	}
	return nil
}

// Shutdown 刷新队列；由 NewFromConfig 创建的 producer 随后关闭。幂等。
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.base.Shutdown(ctx, func(ctx context.Context) error {
		err := e.flush(ctx)
		if e.owned {
			e.producer.Close()
		}
		return err
	})
}

// Ping 获取 topic 元数据。
func (e *Exporter) Ping(ctx context.Context) error {
	return e.base.Ping(ctx, func(ctx context.Context) error {
		timeout := xbackend.DefaultHealthTimeout
		if dl, ok := ctx.Deadline(); ok {
			timeout = time.Until(dl)
		}
		topic := e.cfg.Topic
		_, err := e.producer.GetMetadata(&topic, false, int(max(timeout, 0).Milliseconds()))
		return err
	})
}

// Stats 导出统计。
func (e *Exporter) Stats() xbackend.Stats { return e.base.Stats() }
