// Package xmongoexp 把 span 作为文档写入 MongoDB。
//
// 文档 _id 为 "traceid:spanid"，重试导致的重复写入按成功处理。
package xmongoexp
