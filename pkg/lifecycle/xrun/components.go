package xrun

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

// DefaultSignals SIGHUP、SIGINT、SIGTERM、SIGQUIT，每次返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

type testSigChanKey struct{}

// testSigChan 测试通过 ctx 注入的信号通道，未注入时为 nil
func testSigChan(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// =============================================================================
// 托管组件
// =============================================================================

// Shutdowner TracerProvider、Registry、各导出器均满足。
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Pinger 可做健康检查的导出器。
type Pinger interface {
	Ping(ctx context.Context) error
}

// ShutdownOnDone 等待 ctx 结束后在 timeout 内关闭 c，返回 Shutdown 的错误。
// timeout 非正数时不设上限。
//
//	g.Go(xrun.ShutdownOnDone(tp, 5*time.Second))
func ShutdownOnDone(c Shutdowner, timeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if c == nil {
			return ErrNilComponent
		}
		<-ctx.Done()
		sctx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, timeout)
			defer cancel()
		}
		return c.Shutdown(sctx)
	}
}

// HealthCheck 每隔 interval 调用一次 p.Ping，失败只记录日志，不终止 Group。
func HealthCheck(name string, p Pinger, interval time.Duration, logger xlog.Logger) func(ctx context.Context) error {
	logger = xlog.OrDefault(logger).With(xlog.Exporter(name))
	return func(ctx context.Context) error {
		if p == nil {
			return ErrNilComponent
		}
		healthy := true
		return Ticker(interval, true, func(ctx context.Context) error {
			err := p.Ping(ctx)
			switch {
			case err != nil && healthy:
				logger.Warn(ctx, "health check failed", xlog.Err(err))
			case err == nil && !healthy:
				logger.Info(ctx, "health check recovered")
			}
			healthy = err == nil
			return nil
		})(ctx)
	}
}

// Ticker 每隔 interval 执行 fn，fn 出错时返回该错误；immediate 为 true 时先执行一次。
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}
		if immediate {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// WaitForDone 阻塞到 ctx 结束。
func WaitForDone() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
}
