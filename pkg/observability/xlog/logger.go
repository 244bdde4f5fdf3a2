package xlog

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

var (
	_ Logger          = (*xlogger)(nil)
	_ LoggerWithLevel = (*xlogger)(nil)
)

const (
	initialStackSize = 4096
	maxStackSize     = 64 * 1024
)

// xlogger Logger 接口的实现
//
// errorCount 和 inErrorHandler 在派生 logger 间共享。
type xlogger struct {
	handler        slog.Handler
	levelVar       *slog.LevelVar
	onError        func(error)
	errorCount     *atomic.Uint64
	addSource      bool
	inErrorHandler *atomic.Bool
}

// emit 构造并写出记录。skip 为 runtime.Callers 需要跳过的帧数，使 source 指向调用方。
//
//go:noinline
func (l *xlogger) emit(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr, skip int, extra ...slog.Attr) {
	var pc uintptr
	if l.addSource {
		var pcs [1]uintptr
		runtime.Callers(skip+1, pcs[:])
		pc = pcs[0]
	}

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	r.AddAttrs(extra...)

	if err := l.handler.Handle(ctx, r); err != nil {
		l.handleError(err)
	}
}

// log Callers → emit → log → Info → 调用方
//
//go:noinline
func (l *xlogger) log(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}
	l.emit(ctx, level, msg, attrs, 3)
}

// handleError 回调执行期间发生的错误只计数，不再回调。
func (l *xlogger) handleError(err error) {
	l.errorCount.Add(1)
	if l.onError == nil {
		return
	}
	if l.inErrorHandler.CompareAndSwap(false, true) {
		defer l.inErrorHandler.Store(false)
		l.safeOnError(err)
	}
}

func (l *xlogger) safeOnError(err error) {
	defer func() {
		if r := recover(); r != nil {
			l.errorCount.Add(1)
		}
	}()
	l.onError(err)
}

// Debug 记录 Debug 级别日志
func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, msg, attrs)
}

// Info 记录 Info 级别日志
func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, msg, attrs)
}

// Warn 记录 Warn 级别日志
func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, msg, attrs)
}

// Error 记录 Error 级别日志
func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, msg, attrs)
}

// Stack 记录带当前 goroutine 堆栈的 Error 日志，用于 recover 之后。
//
//go:noinline
func (l *xlogger) Stack(ctx context.Context, msg string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, slog.LevelError) {
		return
	}

	// 缓冲区写满说明可能被截断，翻倍重试直到上限
	buf := make([]byte, initialStackSize)
	n := runtime.Stack(buf, false)
	for n == len(buf) && len(buf) < maxStackSize {
		buf = make([]byte, min(len(buf)*2, maxStackSize))
		n = runtime.Stack(buf, false)
	}
	l.emit(ctx, slog.LevelError, msg, attrs, 2, slog.String(KeyStack, string(buf[:n])))
}

func (l *xlogger) derive(h slog.Handler) *xlogger {
	return &xlogger{
		handler:        h,
		levelVar:       l.levelVar,
		onError:        l.onError,
		errorCount:     l.errorCount,
		addSource:      l.addSource,
		inErrorHandler: l.inErrorHandler,
	}
}

// With 返回带额外属性的派生 Logger
func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return l.derive(l.handler.WithAttrs(attrs))
}

// WithGroup 返回带分组的派生 Logger
func (l *xlogger) WithGroup(name string) Logger {
	if name == "" {
		return l
	}
	return l.derive(l.handler.WithGroup(name))
}

// SetLevel 实现 Leveler
func (l *xlogger) SetLevel(level Level) {
	l.levelVar.Set(slog.Level(level))
}

// GetLevel 实现 Leveler
func (l *xlogger) GetLevel() Level {
	return Level(l.levelVar.Level())
}

// Enabled 实现 Leveler
func (l *xlogger) Enabled(ctx context.Context, level Level) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.handler.Enabled(ctx, slog.Level(level))
}

// ErrorCount 返回 logger 内部写入失败的次数。
func ErrorCount(l Logger) uint64 {
	if xl, ok := l.(*xlogger); ok {
		return xl.errorCount.Load()
	}
	return 0
}

// Discard 返回丢弃所有输出的 Logger，测试和静默组件使用。
func Discard() LoggerWithLevel {
	return &xlogger{
		handler:        slog.DiscardHandler,
		levelVar:       new(slog.LevelVar),
		errorCount:     new(atomic.Uint64),
		inErrorHandler: new(atomic.Bool),
	}
}

// OrDefault l 为 nil 时返回 Default()。
func OrDefault(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}
