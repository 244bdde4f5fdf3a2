package xpulsarexp

//go:generate mockgen -source=pulsarexp.go -destination=mock_producer_test.go -package=xpulsarexp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/exporter/xresilient"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const exporterName = "pulsar_exporter"

const healthTopic = "non-persistent://public/default/__xtel_health__"

var (
	// ErrNilProducer producer 为 nil
	ErrNilProducer = errors.New("xpulsarexp: nil producer")

	// ErrNilClient client 为 nil
	ErrNilClient = errors.New("xpulsarexp: nil client")
)

// Producer pulsar.Producer 中导出器用到的方法。
type Producer interface {
	Topic() string
	SendAsync(ctx context.Context, msg *pulsar.ProducerMessage, callback func(pulsar.MessageID, *pulsar.ProducerMessage, error))
	FlushWithCtx(ctx context.Context) error
	Close()
}

var _ Producer = (pulsar.Producer)(nil)

// Exporter 每个 span 一条 Pulsar 消息，key 为 trace ID，配合 Key_Shared 订阅可按 trace 分发。
type Exporter struct {
	base     *xbackend.Base
	producer Producer
	client   pulsar.Client
	owned    bool
}

var _ xsdk.SpanExporter = (*Exporter)(nil)

// New 使用调用方管理的 producer，Shutdown 只做 Flush 不关闭它。
func New(producer Producer, opts ...xbackend.Option) (*Exporter, error) {
	if producer == nil {
		return nil, ErrNilProducer
	}
	base, err := xbackend.NewBase(exporterName, opts...)
	if err != nil {
		return nil, err
	}
	return &Exporter{base: base, producer: producer}, nil
}

// NewFromClient 在 client 上创建 producer，Shutdown 时关闭 producer，client 仍归调用方。
// Ping 通过 client 创建临时 Reader 检查 broker 连接。
func NewFromClient(client pulsar.Client, po pulsar.ProducerOptions, opts ...xbackend.Option) (*Exporter, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	p, err := client.CreateProducer(po)
	if err != nil {
		return nil, fmt.Errorf("xpulsarexp: create producer: %w", err)
	}
	e, err := New(p, opts...)
	if err != nil {
		p.Close()
		return nil, err
	}
	e.client = client
	e.owned = true
	return e, nil
}

// Export 实现 xsdk.SpanExporter，等待本批全部回执后返回。
func (e *Exporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	return e.base.Export(ctx, spans, e.send)
}

func (e *Exporter) send(ctx context.Context, spans []xsdk.SpanData) error {
	records, err := xbackend.EncodeJSON(spans)
	if err != nil {
		return err
	}

	// 回调可能在 SendAsync 内同步执行，缓冲保证不阻塞
	acks := make(chan error, len(records))
	for i, r := range records {
		e.producer.SendAsync(ctx, &pulsar.ProducerMessage{
			Key:        spans[i].SpanContext.TraceID().String(),
			Payload:    r,
			Properties: map[string]string{"content-type": "application/json"},
			EventTime:  spans[i].EndTime,
		}, func(_ pulsar.MessageID, _ *pulsar.ProducerMessage, err error) {
			acks <- err
		})
	}
	// 刷新失败的消息会在各自回调中报告
	_ = e.producer.FlushWithCtx(ctx)

	var errs []error
	for range records {
		select {
		case <-ctx.Done():
			return errors.Join(append(errs, ctx.Err())...)
		case err := <-acks:
			if err != nil {
				errs = append(errs, classify(err))
			}
		}
	}
	return worst(errs)
}

// worst 有可重试错误时整批可重试，否则返回首个永久错误。
func worst(errs []error) error {
	var permanent error
	for _, err := range errs {
		if xresilient.IsRetryable(err) {
			return err
		}
		if permanent == nil {
			permanent = err
		}
	}
	return permanent
}

// classify 消息过大、schema 不匹配、topic 终止、producer 被隔离或已关闭不可重试。
func classify(err error) error {
	switch {
	case errors.Is(err, pulsar.ErrMessageTooLarge),
		errors.Is(err, pulsar.ErrMetaTooLarge),
		errors.Is(err, pulsar.ErrInvalidMessage),
		errors.Is(err, pulsar.ErrSchema),
		errors.Is(err, pulsar.ErrTopicTerminated),
		errors.Is(err, pulsar.ErrProducerFenced),
		errors.Is(err, pulsar.ErrProducerClosed):
		return xbackend.Permanent(err)
	default:
		return err
	}
}

// Flush 刷新 producer 的批量缓冲。
func (e *Exporter) Flush(ctx context.Context) xsdk.ExportResult {
	if e.base.Stopped() {
		return xsdk.ExportSuccess
	}
	if err := e.producer.FlushWithCtx(ctx); err != nil {
		e.base.Logger().Warn(ctx, "flush failed")
		return xsdk.ExportFailureRetryable
	}
	return xsdk.ExportSuccess
}

// Shutdown 刷新缓冲；由 NewFromClient 创建的 producer 随后关闭。幂等。
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.base.Shutdown(ctx, func(ctx context.Context) error {
		err := e.producer.FlushWithCtx(ctx)
		if e.owned {
			e.producer.Close()
		}
		return err
	})
}

type readerResult struct {
	reader pulsar.Reader
	err    error
}

// Ping 仅对 NewFromClient 创建的导出器有效，其余情况直接返回 nil。
//
// CreateReader 不接受 ctx，超时后由后台 goroutine 等待并关闭迟到的 Reader。
func (e *Exporter) Ping(ctx context.Context) error {
	if e.client == nil {
		return nil
	}
	return e.base.Ping(ctx, func(ctx context.Context) error {
		ch := make(chan readerResult, 1)
		go func() {
			r, err := e.client.CreateReader(pulsar.ReaderOptions{
				Topic:          healthTopic,
				StartMessageID: pulsar.EarliestMessageID(),
			})
			ch <- readerResult{reader: r, err: err}
		}()
		select {
		case <-ctx.Done():
			go func() {
				if res := <-ch; res.reader != nil {
					res.reader.Close()
				}
			}()
			return ctx.Err()
		case res := <-ch:
			if res.reader != nil {
				res.reader.Close()
			}
			if res.err != nil && !topicMissing(res.err) {
				return res.err
			}
			return nil
		}
	})
}

// topicMissing 说明已连上 broker，只是 topic 不可用
func topicMissing(err error) bool {
	s := err.Error()
	return strings.Contains(s, "TopicNotFound") || strings.Contains(s, "topic not found")
}

// Topic 目标 topic。
func (e *Exporter) Topic() string { return e.producer.Topic() }

// Stats 导出统计。
func (e *Exporter) Stats() xbackend.Stats { return e.base.Stats() }
