package xrotate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Lumberjack 默认配置。span 日志单条较大，默认值比普通应用日志小、保留更短。
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 7
	DefaultCompress   = true

	maxSizeMB  = 10240
	maxBackups = 1024
	maxAgeDays = 3650
)

type lumberjackConfig struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
	localTime  bool
}

// Option lumberjack 配置选项
type Option func(*lumberjackConfig)

// WithMaxSize 单个文件最大大小（MB），超过时自动轮转
func WithMaxSize(mb int) Option {
	return func(c *lumberjackConfig) { c.maxSizeMB = mb }
}

// WithMaxBackups 保留的备份数量，0 表示只按天数清理
func WithMaxBackups(n int) Option {
	return func(c *lumberjackConfig) { c.maxBackups = n }
}

// WithMaxAge 备份保留天数，0 表示只按数量清理
func WithMaxAge(days int) Option {
	return func(c *lumberjackConfig) { c.maxAgeDays = days }
}

// WithCompress 是否 gzip 压缩备份
func WithCompress(compress bool) Option {
	return func(c *lumberjackConfig) { c.compress = compress }
}

// WithLocalTime 备份文件名使用本地时间，默认 UTC
func WithLocalTime(local bool) Option {
	return func(c *lumberjackConfig) { c.localTime = local }
}

type lumberjackRotator struct {
	logger *lumberjack.Logger
	closed atomic.Bool
}

// NewLumberjack 创建按大小轮转的 Rotator，父目录不存在时以 0750 创建。
func NewLumberjack(filename string, opts ...Option) (Rotator, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}

	cfg := lumberjackConfig{
		maxSizeMB:  DefaultMaxSizeMB,
		maxBackups: DefaultMaxBackups,
		maxAgeDays: DefaultMaxAgeDays,
		compress:   DefaultCompress,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	path := filepath.Clean(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("xrotate: create dir: %w", err)
	}

	return &lumberjackRotator{
		logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.maxSizeMB,
			MaxBackups: cfg.maxBackups,
			MaxAge:     cfg.maxAgeDays,
			Compress:   cfg.compress,
			LocalTime:  cfg.localTime,
		},
	}, nil
}

func (c *lumberjackConfig) validate() error {
	if c.maxSizeMB <= 0 || c.maxSizeMB > maxSizeMB {
		return fmt.Errorf("%w: got %d, want 1~%d", ErrInvalidMaxSize, c.maxSizeMB, maxSizeMB)
	}
	if c.maxBackups < 0 || c.maxBackups > maxBackups {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxBackups, c.maxBackups, maxBackups)
	}
	if c.maxAgeDays < 0 || c.maxAgeDays > maxAgeDays {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxAge, c.maxAgeDays, maxAgeDays)
	}
	if c.maxBackups == 0 && c.maxAgeDays == 0 {
		return ErrNoCleanupPolicy
	}
	return nil
}

// Write 实现 io.Writer
func (r *lumberjackRotator) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	n, err := r.logger.Write(p)
	// Close 可能在写入过程中完成，此时统一返回 ErrClosed
	if err != nil && r.closed.Load() {
		return n, ErrClosed
	}
	return n, err
}

// Close 关闭后 Write/Rotate 返回 ErrClosed，重复 Close 也返回 ErrClosed。
func (r *lumberjackRotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	return r.logger.Close()
}

// Rotate 手动触发轮转
func (r *lumberjackRotator) Rotate() error {
	if r.closed.Load() {
		return ErrClosed
	}
	return r.logger.Rotate()
}
