package xspanctx

import "errors"

var (
	// ErrInvalidFormat 表示十六进制文本长度错误或包含非法字符。
	ErrInvalidFormat = errors.New("xspanctx: invalid format")

	// ErrInvalidTraceState 表示 tracestate 键或值不符合 W3C 规则。
	ErrInvalidTraceState = errors.New("xspanctx: invalid tracestate member")
)
