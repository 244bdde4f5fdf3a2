package xpropagation

import "errors"

var (
	// ErrInvalidTraceparent traceparent 文本不符合 W3C Trace Context 格式
	ErrInvalidTraceparent = errors.New("xpropagation: invalid traceparent")

	// ErrInvalidBaggage baggage 头中没有任何有效成员
	ErrInvalidBaggage = errors.New("xpropagation: invalid baggage header")
)
