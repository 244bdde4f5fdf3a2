package xsampling

import "errors"

// 采样器创建相关的错误
var (
	// ErrInvalidRatio 表示采样比率不在 [0.0, 1.0] 范围内或为 NaN
	ErrInvalidRatio = errors.New("xsampling: ratio must be in [0.0, 1.0]")

	// ErrEmptyKey 表示 KeyBased 的属性 key 为空
	ErrEmptyKey = errors.New("xsampling: attribute key must not be empty")

	// ErrInvalidMode 表示 Composite 的组合模式不合法
	ErrInvalidMode = errors.New("xsampling: invalid CompositeMode, must be ModeAll or ModeAny")

	// ErrNilSampler 表示传入的子采样器为 nil
	ErrNilSampler = errors.New("xsampling: sampler must not be nil")
)
