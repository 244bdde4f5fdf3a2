// Package xkafkaexp 通过 confluent-kafka-go 把 span 写入 Kafka。
//
// 每个 span 一条消息：key 为 trace ID，value 为 xspanjson，header content-type=application/json。
// librdkafka 的致命错误、消息过大、鉴权失败映射为 ExportFailure，其余为 ExportFailureRetryable。
//
//	exp, err := xkafkaexp.NewFromConfig(&kafka.ConfigMap{"bootstrap.servers": "localhost:9092"},
//	    xkafkaexp.Config{Topic: "spans"})
package xkafkaexp
