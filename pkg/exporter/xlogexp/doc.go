// Package xlogexp 把 span 输出到标准输出、轮转文件或日志。
//
// FormatJSON 每行一个 xspanjson.Span，适合被日志采集器收走；
// FormatText 为调试用的多行格式；NewLogger 把每个 span 作为一条 xlog 记录。
//
//	exp, _ := xlogexp.NewFile("/var/log/app/spans.log", xlogexp.Config{},
//	    []xrotate.Option{xrotate.WithMaxSize(50)})
package xlogexp
