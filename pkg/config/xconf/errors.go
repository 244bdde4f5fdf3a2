package xconf

import "errors"

// 加载与解析
var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	ErrLoadFailed        = errors.New("xconf: failed to load config")
	ErrParseFailed       = errors.New("xconf: failed to parse config")
	ErrUnmarshalFailed   = errors.New("xconf: failed to unmarshal config")

	// ErrNotReloadable 从字节创建的配置不能重载或监视
	ErrNotReloadable = errors.New("xconf: config created from bytes is not reloadable")
)

// SDK 配置
var (
	// ErrInvalidSampler 采样器类型未知或参数非法
	ErrInvalidSampler = errors.New("xconf: invalid sampler config")

	// ErrInvalidBatch 批处理参数非法
	ErrInvalidBatch = errors.New("xconf: invalid batch config")

	// ErrNilProvider 未提供 TracerProvider
	ErrNilProvider = errors.New("xconf: nil tracer provider")

	// ErrNilExporter 未提供导出器
	ErrNilExporter = errors.New("xconf: nil span exporter")
)

// etcd 数据源
var (
	ErrNilEtcdClient = errors.New("xconf: nil etcd client")
	ErrEmptyEtcdKey  = errors.New("xconf: empty etcd key")
)
