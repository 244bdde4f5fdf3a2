// Package xregistry 是进程内链路追踪组件的显式持有者。
//
// Registry 聚合 TracerProvider、SpanContext 传播器、baggage 传播器与
// ContextManager，由调用方创建并按引用传递，没有包级全局变量：
//
//	reg, err := xregistry.New(
//		xregistry.WithProviderOptions(xsdk.WithSpanProcessor(bsp)),
//		xregistry.WithContextManagerName("stack"),
//	)
//	defer reg.Shutdown(ctx)
//
//	tracer := reg.Tracer("checkout")
package xregistry
