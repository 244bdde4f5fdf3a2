package xscope

import "errors"

// ErrUnknownManager 配置中的管理器名称无法识别。
var ErrUnknownManager = errors.New("xscope: unknown context manager")
