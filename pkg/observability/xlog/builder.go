package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xtel/pkg/observability/xrotate"
)

// ReplaceAttrFunc 属性替换函数，返回空 Key 的 Attr 会移除该属性。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Builder 日志配置构建器
//
// first-error-wins：第一个配置错误会被记录，Build 时返回。
type Builder struct {
	output       io.Writer
	levelVar     *slog.LevelVar
	format       string
	addSource    bool
	enableEnrich bool
	service      string
	replaceAttr  ReplaceAttrFunc
	rotator      xrotate.Rotator
	onError      func(error)
	err          error
}

// New 创建配置构建器。默认 stderr、Info 级别、text 格式、启用 enrich。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	return &Builder{
		output:       os.Stderr,
		levelVar:     levelVar,
		format:       "text",
		enableEnrich: true,
	}
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.setErr(err)
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值视为 text。
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.setErr(fmt.Errorf("%w: %q", ErrUnknownFormat, format))
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetEnrich 是否从 context 注入 trace_id/span_id/trace_flags，默认启用。
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enableEnrich = enable
	return b
}

// SetService 设置服务名，作为固定属性 service 加到每条日志。
func (b *Builder) SetService(name string) *Builder {
	b.service = strings.TrimSpace(name)
	return b
}

// SetRotation 输出到按大小轮转的文件
func (b *Builder) SetRotation(filename string, opts ...xrotate.Option) *Builder {
	rotator, err := xrotate.NewLumberjack(filename, opts...)
	if err != nil {
		b.setErr(err)
		return b
	}
	b.rotator = rotator
	b.output = rotator
	return b
}

// SetOnError 设置内部错误回调（Handler.Handle 失败时调用）。
//
// 回调在写日志的路径上同步执行，应保持轻量；回调内再次出错不会递归。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// SetReplaceAttr 设置属性替换函数（字段重命名、脱敏、过滤）
//
//	logger, _, _ := xlog.New().
//		SetReplaceAttr(func(groups []string, a slog.Attr) slog.Attr {
//			if a.Key == "authorization" {
//				return slog.String(a.Key, "***")
//			}
//			return a
//		}).
//		Build()
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build 构建 Logger 实例
//
// 返回值：
//   - LoggerWithLevel: 日志实例，同时支持动态级别控制
//   - func() error: 清理函数，关闭轮转文件
//   - error: 配置错误
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}
	if b.replaceAttr != nil {
		opts.ReplaceAttr = b.replaceAttr
	}

	var handler slog.Handler
	switch b.format {
	case "json":
		handler = slog.NewJSONHandler(b.output, opts)
	default:
		handler = slog.NewTextHandler(b.output, opts)
	}

	if b.enableEnrich {
		enriched, err := NewEnrichHandler(handler)
		if err != nil {
			return nil, nil, err
		}
		handler = enriched
	}

	if b.service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String(KeyService, b.service)})
	}

	logger := &xlogger{
		handler:        handler,
		levelVar:       b.levelVar,
		onError:        b.onError,
		errorCount:     new(atomic.Uint64),
		addSource:      b.addSource,
		inErrorHandler: new(atomic.Bool),
	}

	return logger, b.createCleanup(), nil
}

func (b *Builder) createCleanup() func() error {
	var once sync.Once
	rotator := b.rotator

	return func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
}
