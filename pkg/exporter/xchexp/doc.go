// Package xchexp 通过 clickhouse-go 把 span 批量写入 ClickHouse。
//
// 每次 Export 一个 batch，列定义见 Row。Config.CreateSchema 为 true 时
// 创建 MergeTree 表（trace_id 带 bloom filter 索引，可选 TTL）。
//
//	exp, err := xchexp.Open(ctx, &clickhouse.Options{Addr: []string{"localhost:9000"}},
//	    xchexp.Config{CreateSchema: true, TTL: 7 * 24 * time.Hour})
package xchexp
