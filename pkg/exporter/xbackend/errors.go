package xbackend

import "errors"

var (
	// ErrEmptyName 导出器名称为空
	ErrEmptyName = errors.New("xbackend: empty exporter name")

	// ErrNilSend 发送函数为 nil
	ErrNilSend = errors.New("xbackend: nil send func")

	// ErrEncode span 编码失败，不可重试
	ErrEncode = errors.New("xbackend: encode spans")
)
