package xrun

import (
	"os"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

// Option Group 配置选项
type Option func(*groupOptions)

type groupOptions struct {
	logger          xlog.Logger
	name            string
	signals         []os.Signal
	noSignalHandler bool
}

func defaultOptions() *groupOptions {
	return &groupOptions{name: "xrun"}
}

// WithLogger 记录服务启停与信号，默认 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *groupOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName 日志中的 group 名称，默认 "xrun"。
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 覆盖 Run 监听的信号，空列表等同 DefaultSignals()。
func WithSignals(signals []os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *groupOptions) {
		o.signals = copied
	}
}

// WithoutSignalHandler Run 不注册信号监听。
func WithoutSignalHandler() Option {
	return func(o *groupOptions) {
		o.noSignalHandler = true
	}
}
