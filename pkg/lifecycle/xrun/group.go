package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

// Group 并发运行一组服务，任一服务出错或被取消时其余服务一并收到取消。
//
// Go、GoWithName、Cancel 可并发调用，Wait 只调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
	logger   xlog.Logger
}

// NewGroup 创建 Group，返回的 ctx 在任一服务返回错误时取消。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     o,
		logger:   xlog.OrDefault(o.logger).With(slog.String("group", o.name)),
	}, egCtx
}

// Go 在新 goroutine 中运行 fn，fn 应在 ctx.Done() 后返回。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 同 Go，并记录服务的启动与退出。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		svc := slog.String("service", name)
		g.logger.Debug(g.ctx, "service starting", svc)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.logger.Warn(g.ctx, "service exited with error", svc, xlog.Err(err))
		} else {
			g.logger.Debug(g.ctx, "service stopped", svc)
		}
		return err
	})
}

// Wait 等待全部服务退出。
//
// 服务返回的 context.Canceled 在 Group 被取消时被过滤：有显式原因（如 *SignalError）
// 返回该原因，否则返回 nil。Group 未被取消时，服务内部产生的 context.Canceled 原样返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.logger.Debug(context.Background(), "all services stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if g.causeCtx.Err() == nil {
		return err
	}
	if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// Cancel 以 cause 取消全部服务，Wait 返回 cause。
// cause 不应包装 context.Canceled，否则会被当作普通取消过滤。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context Group 的 context
func (g *Group) Context() context.Context {
	return g.ctx
}

// =============================================================================
// 便捷入口
// =============================================================================

// Run 运行 services 并监听 DefaultSignals，收到信号时返回 *SignalError。
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 同 Run，支持配置。
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		g.Go(g.watchSignals)
	}
	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

func (g *Group) watchSignals(ctx context.Context) error {
	signals := g.opts.signals
	if len(signals) == 0 {
		signals = DefaultSignals()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	var sig os.Signal
	select {
	case sig = <-testSigChan(ctx):
	case sig = <-sigCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.logger.Info(ctx, "received signal", slog.String("signal", sig.String()))
	g.cancel(&SignalError{Signal: sig})
	return nil
}
