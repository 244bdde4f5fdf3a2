package xsdk

import "errors"

var (
	// ErrFlushTimeout ForceFlush 在 ctx 结束前未完成
	ErrFlushTimeout = errors.New("xsdk: force flush timed out")

	// ErrShutdownTimeout Shutdown 在 ctx 结束前未完成最终导出
	ErrShutdownTimeout = errors.New("xsdk: shutdown timed out")

	// ErrExportFailed 导出器返回非 Success 结果
	ErrExportFailed = errors.New("xsdk: export failed")

	// ErrNilExporter 处理器的导出器为 nil
	ErrNilExporter = errors.New("xsdk: exporter is nil")
)
