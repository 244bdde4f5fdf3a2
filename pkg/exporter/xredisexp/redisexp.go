package xredisexp

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const exporterName = "redis_exporter"

// 默认值
const (
	DefaultStream = "xtel:spans"
	DefaultField  = "span"
)

// ErrNilClient Redis 客户端为 nil
var ErrNilClient = errors.New("xredisexp: nil redis client")

// Config 导出器配置
type Config struct {
	// Stream 目标 stream，默认 DefaultStream
	Stream string

	// Field 保存 span JSON 的字段名，默认 DefaultField
	Field string

	// MaxLen stream 长度上限，0 不裁剪
	MaxLen int64

	// ApproxTrim 使用 MAXLEN ~ 近似裁剪，开销更低
	ApproxTrim bool
}

// Exporter 以 XADD 把每个 span 追加到 Redis Stream。
//
// 每条消息含 Field（xspanjson 格式）与 trace_id 两个字段，一批 span 通过一次 pipeline 发送。
type Exporter struct {
	base   *xbackend.Base
	client redis.UniversalClient
	cfg    Config
}

var _ xsdk.SpanExporter = (*Exporter)(nil)

// New 创建导出器。client 由调用方管理，Shutdown 不关闭它。
func New(client redis.UniversalClient, cfg Config, opts ...xbackend.Option) (*Exporter, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Field == "" {
		cfg.Field = DefaultField
	}
	cfg.MaxLen = max(cfg.MaxLen, 0)
	base, err := xbackend.NewBase(exporterName, opts...)
	if err != nil {
		return nil, err
	}
	return &Exporter{base: base, client: client, cfg: cfg}, nil
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
	pipe := e.client.Pipeline()
	for i, r := range records {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: e.cfg.Stream,
			MaxLen: e.cfg.MaxLen,
			Approx: e.cfg.ApproxTrim,
			Values: []any{e.cfg.Field, r, "trace_id", spans[i].SpanContext.TraceID().String()},
		})
	}
	_, err = pipe.Exec(ctx)
	return classify(err)
}

// classify 类型、权限类错误重试无意义。
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, prefix := range []string{"WRONGTYPE", "NOPERM", "NOAUTH", "WRONGPASS"} {
		if redis.HasErrorPrefix(err, prefix) {
			return xbackend.Permanent(err)
		}
	}
	return err
}

// Flush 发送是同步的，无需刷新。
func (e *Exporter) Flush(context.Context) xsdk.ExportResult {
	return xsdk.ExportSuccess
}

// Shutdown 停止接收导出，幂等。
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.base.Shutdown(ctx, nil)
}

// Ping 检查 Redis 连通性。
func (e *Exporter) Ping(ctx context.Context) error {
	return e.base.Ping(ctx, func(ctx context.Context) error {
		return e.client.Ping(ctx).Err()
	})
}

// Stats 导出统计。
func (e *Exporter) Stats() xbackend.Stats { return e.base.Stats() }
