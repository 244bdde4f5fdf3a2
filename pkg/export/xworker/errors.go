package xworker

import "errors"

var (
	// ErrNilReader BatchReader 为 nil
	ErrNilReader = errors.New("xworker: batch reader is nil")

	// ErrNilExporter DataExporter 为 nil
	ErrNilExporter = errors.New("xworker: data exporter is nil")

	// ErrNilDelay Delay 为 nil
	ErrNilDelay = errors.New("xworker: delay is nil")
)
