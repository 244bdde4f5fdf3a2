// Package xsampling 提供链路追踪的采样决策。
//
// 采样器在 span 创建时被调用，输入为父上下文、TraceID、名称、类型、
// 属性与链接，输出 [Decision]：
//
//   - [Drop]: 不记录，span 只携带可传播的上下文
//   - [RecordOnly]: 记录但不设置采样位，默认不会被导出
//   - [RecordAndSample]: 记录并设置采样位
//
// 所有内置采样器都是纯函数：相同输入总是得到相同决策，且并发安全。
//
// # 内置策略
//
//   - [AlwaysOn] / [AlwaysOff]: 单例
//   - [TraceIDRatioBased]: 当 low64(traceID) < ratio*2^64 时采样，同一 trace 在所有进程决策一致
//   - [NewRateSampler]: 对完整 TraceID 做 xxhash 后按比率采样，适合低 64 位分布不均的上游 ID
//   - [ParentBased]: 有父级时按 远端/本地 × 已采样/未采样 委托，否则使用 root 采样器
//   - [KeyBased]: 按 span 属性值做 xxhash 一致性采样（如按租户采样）
//   - [Composite]: 组合多个采样器，ModeAll 取最保守决策，ModeAny 取最宽松决策
package xsampling
