// Package xrun 基于 errgroup 托管遥测管线的进程生命周期。
//
// 典型用法：导出器健康检查与 TracerProvider 关闭作为同一 Group 的服务，
// 收到 SIGTERM 后先取消 ctx，再由 ShutdownOnDone 在超时内刷新并关闭 provider。
//
//	err := xrun.Run(ctx,
//	    xrun.HealthCheck("kafka", kafkaExp, 30*time.Second, logger),
//	    xrun.ShutdownOnDone(tp, 5*time.Second),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常退出
//	}
//
// Wait 的返回值：
//   - 服务返回的非取消错误原样返回；
//   - Group 被 Cancel(cause) 或信号取消时返回 cause；
//   - 无显式原因的取消返回 nil。
//
// 直接使用 NewGroup 时不注册信号处理。
package xrun
