// Package xspanjson 提供 SpanData 的 JSON 编解码。
//
// 编码结果是自描述的：ID 使用小写十六进制，时间使用 Unix 纳秒，
// 属性携带类型标记，因此解码后可以无损还原 attribute.KeyValue。
//
//	data, _ := xspanjson.Marshal(spans)
//	back, err := xspanjson.Unmarshal(data)
//
// 文件持久化、Redis、Kafka、Pulsar 等后端共用这一格式。
// Pretty 用于命令行和调试输出。
package xspanjson
