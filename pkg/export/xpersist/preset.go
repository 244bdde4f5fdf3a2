package xpersist

import (
	"fmt"
	"time"

	"github.com/omeyang/xtel/pkg/export/xworker"
)

// 预设名称，用于配置文件
const (
	PresetDefault             = "default"
	PresetLowRuntimeImpact    = "low_runtime_impact"
	PresetInstantDataDelivery = "instant_data_delivery"
)

// PerformancePreset 文件存储与导出节奏的参数组合。
type PerformancePreset struct {
	// MaxFileSize 单个文件的最大字节数
	MaxFileSize int64
	// MaxDirectorySize 目录总大小上限，超出时删除最旧的文件
	MaxDirectorySize int64
	// MaxFileAgeForWrite 文件创建后可继续追加的时长
	MaxFileAgeForWrite time.Duration
	// MinFileAgeForRead 文件可被读取的最小年龄，应大于 MaxFileAgeForWrite
	MinFileAgeForRead time.Duration
	// MaxFileAgeForRead 超过此年龄的文件被视为过期并删除
	MaxFileAgeForRead time.Duration
	// MaxObjectsInFile 单个文件最多追加的次数
	MaxObjectsInFile int
	// MaxObjectSize 单次写入的最大字节数
	MaxObjectSize int64
	// SynchronousWrite 为 true 时 Export 同步落盘
	SynchronousWrite bool

	InitialExportDelay    time.Duration
	MinExportDelay        time.Duration
	MaxExportDelay        time.Duration
	ExportDelayChangeRate float64
}

// LowRuntimeImpact 低开销预设：较大的文件与较长的导出间隔。
func LowRuntimeImpact() PerformancePreset {
	return PerformancePreset{
		MaxFileSize:           4 << 20,
		MaxDirectorySize:      512 << 20,
		MaxFileAgeForWrite:    4750 * time.Millisecond,
		MinFileAgeForRead:     5250 * time.Millisecond,
		MaxFileAgeForRead:     18 * time.Hour,
		MaxObjectsInFile:      500,
		MaxObjectSize:         256 << 10,
		InitialExportDelay:    5 * time.Second,
		MinExportDelay:        time.Second,
		MaxExportDelay:        20 * time.Second,
		ExportDelayChangeRate: 0.1,
	}
}

// InstantDataDelivery 快速投递预设：同步写入，短间隔，适合短生命周期进程。
func InstantDataDelivery() PerformancePreset {
	p := LowRuntimeImpact()
	p.MaxFileAgeForWrite = 2750 * time.Millisecond
	p.MinFileAgeForRead = 3250 * time.Millisecond
	p.SynchronousWrite = true
	p.InitialExportDelay = 500 * time.Millisecond
	p.MinExportDelay = time.Second
	p.MaxExportDelay = 5 * time.Second
	p.ExportDelayChangeRate = 0.5
	return p
}

// Default 默认预设，等同 LowRuntimeImpact。
func Default() PerformancePreset {
	return LowRuntimeImpact()
}

// PresetByName 按名称返回预设，空名称返回 Default。
func PresetByName(name string) (PerformancePreset, error) {
	switch name {
	case "", PresetDefault:
		return Default(), nil
	case PresetLowRuntimeImpact:
		return LowRuntimeImpact(), nil
	case PresetInstantDataDelivery:
		return InstantDataDelivery(), nil
	default:
		return PerformancePreset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}

// DelayPreset 导出间隔参数。
func (p PerformancePreset) DelayPreset() xworker.DelayPreset {
	return xworker.DelayPreset{
		Initial:    p.InitialExportDelay,
		Min:        p.MinExportDelay,
		Max:        p.MaxExportDelay,
		ChangeRate: p.ExportDelayChangeRate,
	}
}
