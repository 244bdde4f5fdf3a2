package xlogexp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xrotate"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

const exporterName = "log_exporter"

// Format 输出格式
type Format string

const (
	// FormatJSON 每个 span 一行 JSON（xspanjson 格式），可被 xtelctl 与持久化目录读回
	FormatJSON Format = "json"
	// FormatText 多行人类可读格式，用于调试
	FormatText Format = "text"
)

// ErrUnknownFormat 不支持的输出格式
var ErrUnknownFormat = errors.New("xlogexp: unknown format")

// Config 导出器配置
type Config struct {
	// Format 默认 FormatJSON
	Format Format
}

// Exporter 把 span 写到 io.Writer、轮转文件或 xlog.Logger。
type Exporter struct {
	base   *xbackend.Base
	format Format

	mu     sync.Mutex
	w      io.Writer
	closer io.Closer

	// sink 非 nil 时以日志记录输出
	sink xlog.Logger
}

var _ xsdk.SpanExporter = (*Exporter)(nil)

// New 写入 w，w 为 nil 时写 os.Stdout。w 不随 Shutdown 关闭。
func New(w io.Writer, cfg Config, opts ...xbackend.Option) (*Exporter, error) {
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if cfg.Format != FormatJSON && cfg.Format != FormatText {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
	}
	if w == nil {
		w = os.Stdout
	}
	base, err := xbackend.NewBase(exporterName, opts...)
	if err != nil {
		return nil, err
	}
	return &Exporter{base: base, format: cfg.Format, w: w}, nil
}

// NewFile 写入按大小轮转的文件，Shutdown 时关闭文件。
func NewFile(filename string, cfg Config, rotate []xrotate.Option, opts ...xbackend.Option) (*Exporter, error) {
	r, err := xrotate.NewLumberjack(filename, rotate...)
	if err != nil {
		return nil, err
	}
	e, err := New(r, cfg, opts...)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	e.closer = r
	return e, nil
}

// NewLogger 每个 span 输出一条 Info 日志，属性为 span 的标识、耗时与状态。
func NewLogger(sink xlog.Logger, opts ...xbackend.Option) (*Exporter, error) {
	base, err := xbackend.NewBase(exporterName, opts...)
	if err != nil {
		return nil, err
	}
	return &Exporter{base: base, sink: xlog.OrDefault(sink)}, nil
}

// Export 实现 xsdk.SpanExporter。
func (e *Exporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	return e.base.Export(ctx, spans, e.send)
}

func (e *Exporter) send(ctx context.Context, spans []xsdk.SpanData) error {
	if e.sink != nil {
		for _, sd := range spans {
			e.sink.Info(ctx, "span", spanAttrs(sd)...)
		}
		return nil
	}

	var buf bytes.Buffer
	switch e.format {
	case FormatText:
		for _, sd := range spans {
			writeText(&buf, sd)
		}
	default:
		records, err := xbackend.EncodeJSON(spans)
		if err != nil {
			return err
		}
		for _, r := range records {
			buf.Write(r)
			buf.WriteByte('\n')
		}
	}

	// 整批一次写入，并发 Export 的输出不会交错
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.w.Write(buf.Bytes())
	return err
}

// Flush 对支持 Sync 的输出（如 *os.File）落盘。
func (e *Exporter) Flush(context.Context) xsdk.ExportResult {
	if e.base.Stopped() {
		return xsdk.ExportSuccess
	}
	s, ok := e.w.(interface{ Sync() error })
	if !ok {
		return xsdk.ExportSuccess
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.Sync(); err != nil {
		return xsdk.ExportFailureRetryable
	}
	return xsdk.ExportSuccess
}

// Shutdown 关闭由 NewFile 创建的文件，幂等。
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.base.Shutdown(ctx, func(context.Context) error {
		if e.closer == nil {
			return nil
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.closer.Close()
	})
}

// Stats 导出统计。
func (e *Exporter) Stats() xbackend.Stats { return e.base.Stats() }

func spanAttrs(sd xsdk.SpanData) []slog.Attr {
	attrs := []slog.Attr{
		xlog.SpanName(sd.Name),
		slog.String(xlog.KeyTraceID, sd.SpanContext.TraceID().String()),
		slog.String(xlog.KeySpanID, sd.SpanContext.SpanID().String()),
		slog.String("kind", sd.Kind.String()),
		xlog.Duration(sd.Duration()),
		slog.String("status", sd.Status.Code.String()),
	}
	if sd.Parent.SpanID().IsValid() {
		attrs = append(attrs, slog.String("parent_span_id", sd.Parent.SpanID().String()))
	}
	if len(sd.Attributes) > 0 {
		group := make([]any, 0, len(sd.Attributes))
		for _, kv := range sd.Attributes {
			group = append(group, slog.Any(string(kv.Key), kv.Value.AsInterface()))
		}
		attrs = append(attrs, slog.Group("attributes", group...))
	}
	return attrs
}

func writeText(buf *bytes.Buffer, sd xsdk.SpanData) {
	sc := sd.SpanContext
	fmt.Fprintf(buf, "__________________\n")
	fmt.Fprintf(buf, "Span %s:\n", sd.Name)
	fmt.Fprintf(buf, "TraceId: %s\n", sc.TraceID())
	fmt.Fprintf(buf, "SpanId: %s\n", sc.SpanID())
	fmt.Fprintf(buf, "Span kind: %s\n", sd.Kind)
	fmt.Fprintf(buf, "TraceFlags: %s\n", sc.TraceFlags())
	fmt.Fprintf(buf, "TraceState: %s\n", sc.TraceState())
	fmt.Fprintf(buf, "ParentSpanId: %s\n", sd.Parent.SpanID())
	fmt.Fprintf(buf, "Start: %d\n", sd.StartTime.UnixNano())
	fmt.Fprintf(buf, "Duration: %d nanoseconds\n", sd.Duration().Nanoseconds())
	fmt.Fprintf(buf, "Status: %s\n", sd.Status.Code)
	if len(sd.Attributes) > 0 {
		fmt.Fprintf(buf, "Attributes:\n")
		for _, kv := range sd.Attributes {
			fmt.Fprintf(buf, "  %s=%s\n", kv.Key, kv.Value.Emit())
		}
	}
	if len(sd.Events) > 0 {
		fmt.Fprintf(buf, "Events:\n")
		for _, ev := range sd.Events {
			fmt.Fprintf(buf, "  %s Time: +%d\n", ev.Name, ev.Time.Sub(sd.StartTime).Nanoseconds())
		}
	}
	fmt.Fprintf(buf, "------------------\n\n")
}
