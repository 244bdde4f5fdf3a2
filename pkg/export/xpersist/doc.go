// Package xpersist 在导出器前增加本地文件缓冲，进程崩溃或下游不可用时 span 不会丢失。
//
// 组成：
//
//	SpanExporterDecorator.Export ──► FileWriter ──► FilesOrchestrator ──► 目录
//	                                                       │
//	被装饰的 SpanExporter ◄── xworker.Worker ◄── FileReader ◄┘
//
// FilesOrchestrator 以创建时刻（Unix 毫秒）命名文件。一个文件在
// MaxFileAgeForWrite 内持续追加，超过 MinFileAgeForRead 后才会被读取，
// 超过 MaxFileAgeForRead 的文件直接删除；目录超过 MaxDirectorySize 时
// 从最旧的文件开始清理。
//
// 文件内容是若干 JSON 数组片段，每个片段对应一次 Export 调用，
// 编码格式见 xspanjson。
//
// 预设：
//   - LowRuntimeImpact（Default）：异步写入，导出间隔 1s~20s
//   - InstantDataDelivery：同步写入，导出间隔 1s~5s，适合短生命周期进程
package xpersist
