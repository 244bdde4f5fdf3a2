package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号而终止，用 errors.Is 判断
	ErrSignal = errors.New("received signal")

	// ErrNilFunc 服务函数为 nil
	ErrNilFunc = errors.New("xrun: nil function")

	// ErrNilComponent 待托管的组件为 nil
	ErrNilComponent = errors.New("xrun: nil component")

	// ErrInvalidInterval Ticker 或 HealthCheck 的间隔必须为正数
	ErrInvalidInterval = errors.New("xrun: interval must be positive")
)

// SignalError 触发终止的信号。
//
//	var sigErr *xrun.SignalError
//	if errors.As(err, &sigErr) {
//	    fmt.Printf("received signal: %v\n", sigErr.Signal)
//	}
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

// Is 支持 errors.Is(err, ErrSignal)。
func (e *SignalError) Is(target error) bool { return target == ErrSignal }

func (e *SignalError) Unwrap() error { return ErrSignal }
