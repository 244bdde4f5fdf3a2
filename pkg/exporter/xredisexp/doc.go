// Package xredisexp 把 span 写入 Redis Stream，消费方可用 XREADGROUP 分组读取。
//
//	exp, _ := xredisexp.New(rdb, xredisexp.Config{Stream: "spans", MaxLen: 100000, ApproxTrim: true})
package xredisexp
