// Package xrotate 提供按大小轮转的文件输出。
//
// SDK 日志（xlog.Builder.SetRotation）和日志导出器（xlogexp 的文件目标）
// 都通过 [NewLumberjack] 写文件。
package xrotate
