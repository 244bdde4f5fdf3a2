package xresilient

import (
	"context"
	"errors"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

var (
	// ErrNilExporter 被装饰的导出器为 nil
	ErrNilExporter = errors.New("xresilient: nil exporter")

	// ErrNilLimiter 限流器为 nil
	ErrNilLimiter = errors.New("xresilient: nil limiter")

	// ErrNilClient Redis 客户端为 nil
	ErrNilClient = errors.New("xresilient: nil redis client")

	// ErrRetryable 导出器返回 ExportFailureRetryable
	ErrRetryable = errors.New("xresilient: retryable export failure")

	// ErrTerminal 导出器返回 ExportFailure
	ErrTerminal = errors.New("xresilient: terminal export failure")
)

// RetryableError 自带重试分类的错误。
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 重试无意义的错误，如编码失败、鉴权失败。
type PermanentError struct {
	Err error
}

// NewPermanentError 包装为永久错误。
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error   { return e.Err }
func (e *PermanentError) Retryable() bool { return false }

// TemporaryError 稍后重试可能成功的错误。
type TemporaryError struct {
	Err error
}

// NewTemporaryError 包装为临时错误。
func NewTemporaryError(err error) *TemporaryError {
	return &TemporaryError{Err: err}
}

func (e *TemporaryError) Error() string {
	if e.Err == nil {
		return "temporary error"
	}
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error   { return e.Err }
func (e *TemporaryError) Retryable() bool { return true }

// IsRetryable 报告 err 是否值得重试。
//
// nil 不重试；实现 RetryableError 的按其 Retryable() 判断；
// ctx 取消不重试；其余错误默认可重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}

// ResultFromError 把后端错误映射为导出结果：nil 为 ExportSuccess，
// 可重试的为 ExportFailureRetryable，其余为 ExportFailure。
func ResultFromError(err error) xsdk.ExportResult {
	switch {
	case err == nil:
		return xsdk.ExportSuccess
	case IsRetryable(err):
		return xsdk.ExportFailureRetryable
	default:
		return xsdk.ExportFailure
	}
}

// ErrorFromResult 与 ResultFromError 相反，ExportSuccess 得到 nil。
func ErrorFromResult(r xsdk.ExportResult) error {
	switch r {
	case xsdk.ExportSuccess:
		return nil
	case xsdk.ExportFailureRetryable:
		return NewTemporaryError(ErrRetryable)
	default:
		return NewPermanentError(ErrTerminal)
	}
}
