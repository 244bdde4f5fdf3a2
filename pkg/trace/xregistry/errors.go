package xregistry

import "errors"

// ErrProviderConflict 同时指定了 TracerProvider 与构造 provider 的选项
var ErrProviderConflict = errors.New("xregistry: tracer provider and provider options are mutually exclusive")
