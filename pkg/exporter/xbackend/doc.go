// Package xbackend 是各后端导出器（xlogexp、xredisexp、xkafkaexp 等）的共享内核。
//
// 后端导出器只需实现 SendFunc，Base 负责：
//   - Shutdown 后拒绝导出，Shutdown 幂等
//   - 单次发送超时（WithTimeout）
//   - 按 xresilient.ResultFromError 把错误映射为 ExportResult
//   - 导出日志与 xmetrics 指标
//   - 慢导出检测，同步钩子或经 worker pool 的异步钩子
//   - Stats 统计与 Ping 健康检查
//
// 编码失败、鉴权失败等应以 Permanent 包装，其余错误默认可重试。
package xbackend
