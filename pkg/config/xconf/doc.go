// Package xconf 基于 koanf 的配置加载，以及 SDK 配置的解码与动态采样。
//
// # 加载
//
// New 按扩展名识别 YAML/JSON 文件，NewFromBytes 用于 ConfigMap 或 etcd 中的片段。
// Reload 以原子替换的方式更新 koanf 实例，Client() 返回的旧实例保持快照语义。
// Watch 基于 fsnotify 监视文件所在目录，带防抖，Stop 可在回调中调用。
//
// # SDK 配置
//
// SDKConfig 描述服务名、采样器、span 上限、批处理参数、上下文管理器与本地持久化：
//
//	cfg, _ := xconf.New("/etc/app/telemetry.yaml")
//	sc, err := xconf.LoadSDKConfig(cfg, "telemetry")
//	opts, err := sc.Apply(exporter)
//	tp := xsdk.NewTracerProvider(opts...)
//
// # 动态采样
//
// 两种来源都只替换 TracerProvider 的 TraceConfig，不重建 provider：
//   - WatchSampling：配置文件变更后重新解码
//   - EtcdSource：监听 etcd 中一个 key，值为 SamplerConfig 的 JSON/YAML 编码，
//     key 被删除时恢复初始采样器
package xconf
