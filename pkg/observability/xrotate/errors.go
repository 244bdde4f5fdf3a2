package xrotate

import "errors"

var (
	// ErrEmptyFilename 文件名为空
	ErrEmptyFilename = errors.New("xrotate: filename is required")

	// ErrInvalidMaxSize MaxSize 超出 1~10240 MB
	ErrInvalidMaxSize = errors.New("xrotate: invalid max size")

	// ErrInvalidMaxBackups MaxBackups 超出 0~1024
	ErrInvalidMaxBackups = errors.New("xrotate: invalid max backups")

	// ErrInvalidMaxAge MaxAge 超出 0~3650 天
	ErrInvalidMaxAge = errors.New("xrotate: invalid max age")

	// ErrNoCleanupPolicy MaxBackups 和 MaxAge 不能同时为 0
	ErrNoCleanupPolicy = errors.New("xrotate: no cleanup policy configured")

	// ErrClosed 轮转器已关闭
	ErrClosed = errors.New("xrotate: rotator is closed")
)
