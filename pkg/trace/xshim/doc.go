// Package xshim 维护 SpanContext 到 baggage 的并发映射表，
// 供需要在 span 身份上挂载附加数据的桥接层使用。
//
// 表中的值都是不可变的：SetBaggageItem 生成新的 SpanContextShim 替换旧值，
// 已经取出的句柄继续看到旧视图。
package xshim
