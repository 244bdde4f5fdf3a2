// Package xbaggage 提供随链路传播的用户键值数据。
//
// Baggage 是不可变的父链结构：
//
//	root := xbaggage.NewBuilder()
//	root.Put("tenant", "acme")
//	parent := root.Build()
//
//	child := parent.ToBuilder()
//	child.Remove("tenant") // 写入墓碑，父级不受影响
//	b := child.Build()
//
// 子级只保存增量，查找沿父链向上进行，删除以墓碑表示而不是直接移除，
// 因此任何已经发布出去的 Baggage 都不会被原地修改。
//
// 当前 Baggage 通过 xscope.Manager 在 context 或 goroutine 栈上传递，
// 跨进程传播见 xpropagation.W3CBaggage。
package xbaggage
