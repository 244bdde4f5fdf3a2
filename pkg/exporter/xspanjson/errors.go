package xspanjson

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSpan JSON 中的 span 字段非法
	ErrInvalidSpan = errors.New("xspanjson: invalid span")

	// ErrInvalidAttribute 属性类型未知或值与类型不符
	ErrInvalidAttribute = errors.New("xspanjson: invalid attribute")

	// ErrDecode JSON 解码失败
	ErrDecode = errors.New("xspanjson: decode failed")
)

func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidSpan, field, err)
}
