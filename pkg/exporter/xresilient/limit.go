package xresilient

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

// ErrInvalidRate Rate 的 Limit 或 Period 非正
var ErrInvalidRate = errors.New("xresilient: invalid rate")

// Rate 每 Period 允许 Limit 个 span，Burst 为突发容量，0 时等于 Limit。
type Rate struct {
	Limit  int
	Burst  int
	Period time.Duration
}

// PerSecond 每秒 n 个 span。
func PerSecond(n int) Rate { return Rate{Limit: n, Period: time.Second} }

func (r Rate) validate() error {
	if r.Limit <= 0 || r.Period <= 0 || r.Burst < 0 {
		return ErrInvalidRate
	}
	return nil
}

func (r Rate) burst() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// LimitResult 一次配额检查的结果
type LimitResult struct {
	Allowed bool

	// RetryAfter 被拒绝时建议的等待时间
	RetryAfter time.Duration
}

// Limiter 按 span 数发放配额，实现须并发安全。
// n 超过突发容量时按突发容量计，避免大批次永远无法通过。
type Limiter interface {
	AllowN(ctx context.Context, n int) (LimitResult, error)
}

// =============================================================================
// 本地令牌桶
// =============================================================================

type localLimiter struct {
	clock clockz.Clock
	rate  float64 // 每秒补充的令牌
	cap   float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewLocalLimiter 进程内令牌桶，桶初始为满。clock 为 nil 时使用真实时间。
func NewLocalLimiter(r Rate, clock clockz.Clock) (Limiter, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	capacity := float64(r.burst())
	return &localLimiter{
		clock:  clock,
		rate:   float64(r.Limit) / r.Period.Seconds(),
		cap:    capacity,
		tokens: capacity,
		last:   clock.Now(),
	}, nil
}

func (l *localLimiter) AllowN(ctx context.Context, n int) (LimitResult, error) {
	if err := ctx.Err(); err != nil {
		return LimitResult{}, err
	}
	need := min(float64(n), l.cap)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if elapsed := now.Sub(l.last); elapsed > 0 {
		l.tokens = min(l.cap, l.tokens+l.rate*elapsed.Seconds())
	}
	l.last = now

	if l.tokens >= need {
		l.tokens -= need
		return LimitResult{Allowed: true}, nil
	}
	wait := time.Duration((need - l.tokens) / l.rate * float64(time.Second))
	return LimitResult{RetryAfter: wait}, nil
}

// =============================================================================
// Redis (GCRA)
// =============================================================================

type redisLimiter struct {
	limiter *redis_rate.Limiter
	key     string
	limit   redis_rate.Limit
}

// NewRedisLimiter 基于 redis_rate 的分布式限流，使用同一 key 的进程共享配额。
// 不关闭 rdb。
func NewRedisLimiter(rdb redis.UniversalClient, key string, r Rate) (Limiter, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	if key == "" {
		key = "xtel:export"
	}
	return &redisLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		key:     key,
		limit:   redis_rate.Limit{Rate: r.Limit, Burst: r.burst(), Period: r.Period},
	}, nil
}

func (l *redisLimiter) AllowN(ctx context.Context, n int) (LimitResult, error) {
	res, err := l.limiter.AllowN(ctx, l.key, l.limit, min(n, l.limit.Burst))
	if err != nil {
		return LimitResult{}, err
	}
	if res.Allowed > 0 {
		return LimitResult{Allowed: true}, nil
	}
	return LimitResult{RetryAfter: max(res.RetryAfter, 0)}, nil
}

// =============================================================================
// RateLimitExporter
// =============================================================================

// RateLimitExporter 限制发往下游的 span 速率。
//
// 配额不足时不调用下游，返回 ExportFailureRetryable；限流器自身出错时放行，
// 避免限流后端故障阻断导出。Ready 可作为 xpersist.WithExportCondition 的条件。
type RateLimitExporter struct {
	next    xsdk.SpanExporter
	limiter Limiter
	cfg     config

	// blockedUntil 被拒绝后建议恢复的时间，UnixNano
	blockedUntil atomic.Int64
	limited      atomic.Int64
}

var _ xsdk.SpanExporter = (*RateLimitExporter)(nil)

// NewRateLimitExporter 包装 next。
func NewRateLimitExporter(next xsdk.SpanExporter, limiter Limiter, opts ...Option) (*RateLimitExporter, error) {
	if next == nil {
		return nil, ErrNilExporter
	}
	if limiter == nil {
		return nil, ErrNilLimiter
	}
	return &RateLimitExporter{next: next, limiter: limiter, cfg: newConfig("rate_limit_exporter", opts)}, nil
}

// Export 实现 xsdk.SpanExporter。
func (e *RateLimitExporter) Export(ctx context.Context, spans []xsdk.SpanData) xsdk.ExportResult {
	if len(spans) == 0 {
		return e.next.Export(ctx, spans)
	}
	res, err := e.limiter.AllowN(ctx, len(spans))
	switch {
	case err != nil && ctx.Err() != nil:
		return xsdk.ExportFailureRetryable
	case err != nil:
		e.cfg.logger.Warn(ctx, "rate limiter unavailable, exporting without limit", xlog.Err(err))
	case !res.Allowed:
		e.limited.Add(int64(len(spans)))
		e.blockedUntil.Store(e.cfg.clock.Now().Add(res.RetryAfter).UnixNano())
		e.cfg.logger.Debug(ctx, "export rate limited",
			xlog.Count(int64(len(spans))), slog.Duration("retry_after", res.RetryAfter))
		return xsdk.ExportFailureRetryable
	}
	return e.next.Export(ctx, spans)
}

// Ready 上次被拒绝时建议的等待时间已过时返回 true。
func (e *RateLimitExporter) Ready() bool {
	return e.cfg.clock.Now().UnixNano() >= e.blockedUntil.Load()
}

// Limited 因限流被拒绝的 span 累计数。
func (e *RateLimitExporter) Limited() int64 { return e.limited.Load() }

// Flush 转发给被装饰的导出器。
func (e *RateLimitExporter) Flush(ctx context.Context) xsdk.ExportResult {
	return e.next.Flush(ctx)
}

// Shutdown 转发给被装饰的导出器。
func (e *RateLimitExporter) Shutdown(ctx context.Context) error {
	return e.next.Shutdown(ctx)
}
