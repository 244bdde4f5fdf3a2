// Package xpulsarexp 通过 pulsar-client-go 把 span 写入 Pulsar。
//
// 每个 span 一条消息：key 为 trace ID，payload 为 xspanjson，EventTime 为 span 结束时间。
// Export 异步发送整批后 FlushWithCtx，并等待每条消息的回执。
package xpulsarexp
