package xlog

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// =============================================================================
// 全局 Logger
//
// SDK 组件未注入 Logger 时使用。SDK 嵌入在宿主进程中，默认只输出 Warn 及以上，
// 避免 Info 级别的内部事件混入宿主日志。
// =============================================================================

// DefaultLevel 全局默认 Logger 的级别
const DefaultLevel = LevelWarn

var (
	globalLogger atomic.Pointer[LoggerWithLevel]
	globalMu     sync.Mutex
	globalOnce   sync.Once
)

// defaultLogger 持锁执行 once.Do，ResetDefault 会替换 globalOnce。
func defaultLogger() LoggerWithLevel {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalOnce.Do(func() {
		logger, _, err := New().SetLevel(DefaultLevel).Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "xlog: build default logger: %v, falling back to text handler\n", err)
			levelVar := new(slog.LevelVar)
			levelVar.Set(slog.Level(DefaultLevel))
			logger = &xlogger{
				handler:        slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}),
				levelVar:       levelVar,
				errorCount:     new(atomic.Uint64),
				inErrorHandler: new(atomic.Bool),
			}
		}
		globalLogger.Store(&logger)
	})
	return *globalLogger.Load()
}

// Default 返回全局默认 Logger（stderr、Warn、text，首次调用时创建）。
func Default() LoggerWithLevel {
	if l := globalLogger.Load(); l != nil {
		return *l
	}
	return defaultLogger()
}

// SetDefault 替换全局默认 Logger，nil 被忽略。
// 之后创建的 SDK 组件使用新 Logger，已创建的不受影响。
func SetDefault(l LoggerWithLevel) {
	if l == nil {
		return
	}
	globalLogger.Store(&l)
}

// ResetDefault 重置为未初始化状态（仅用于测试）。
func ResetDefault() {
	globalMu.Lock()
	globalLogger.Store(nil)
	globalOnce = sync.Once{}
	globalMu.Unlock()
}
