package xpersist

import "errors"

var (
	// ErrObjectTooLarge 单次写入超过 MaxObjectSize
	ErrObjectTooLarge = errors.New("xpersist: data exceeds max object size")

	// ErrInvalidFileName 文件名不是目录内的普通文件名
	ErrInvalidFileName = errors.New("xpersist: invalid file name")

	// ErrEmptyDirectory 存储目录为空
	ErrEmptyDirectory = errors.New("xpersist: storage directory is required")

	// ErrWriterClosed 写入器已关闭
	ErrWriterClosed = errors.New("xpersist: writer closed")

	// ErrQueueFull 异步写入队列已满
	ErrQueueFull = errors.New("xpersist: write queue full")

	// ErrNilExporter 被装饰的导出器为 nil
	ErrNilExporter = errors.New("xpersist: exporter is nil")

	// ErrUnknownPreset 未知的预设名称
	ErrUnknownPreset = errors.New("xpersist: unknown preset")
)

// ErrShutdownTimeout Shutdown 在 ctx 结束前未等到后台 worker 停止
var ErrShutdownTimeout = errors.New("xpersist: shutdown timed out")
