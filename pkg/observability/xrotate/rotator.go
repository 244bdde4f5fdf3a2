package xrotate

import "io"

var _ io.WriteCloser = (Rotator)(nil)

// Rotator 可轮转的文件输出，xlog 和 xlogexp 的文件目标。实现必须并发安全。
type Rotator interface {
	// Write 写入数据，达到大小上限时自动轮转
	Write(p []byte) (n int, err error)

	// Close 关闭当前文件，重复调用返回 ErrClosed
	Close() error

	// Rotate 手动轮转：当前文件改名为备份，新建文件
	Rotate() error
}
