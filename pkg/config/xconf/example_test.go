package xconf_test

import (
	"context"
	"fmt"

	"github.com/omeyang/xtel/pkg/config/xconf"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

func ExampleNewFromBytes() {
	cfg, err := xconf.NewFromBytes([]byte("app:\n  name: checkout\n  port: 8080\n"), xconf.FormatYAML)
	if err != nil {
		panic(err)
	}
	fmt.Println(cfg.Client().String("app.name"), cfg.Client().Int("app.port"))
	// Output: checkout 8080
}

func ExampleSDKConfig_Apply() {
	cfg, err := xconf.NewFromBytes([]byte(`
telemetry:
  service_name: checkout
  sampler:
    type: ratio
    ratio: 1
`), xconf.FormatYAML)
	if err != nil {
		panic(err)
	}
	sc, err := xconf.LoadSDKConfig(cfg, "telemetry")
	if err != nil {
		panic(err)
	}

	exp := xsdk.NewInMemoryExporter()
	opts, err := sc.Apply(exp)
	if err != nil {
		panic(err)
	}
	tp := xsdk.NewTracerProvider(append(opts, xsdk.WithLogger(xlog.Discard()))...)
	tp.Tracer("example").SpanBuilder("checkout").Start(context.Background()).End()
	_ = tp.Shutdown(context.Background())

	fmt.Println(tp.ActiveTraceConfig().Sampler().Description())
	fmt.Println(len(exp.Spans()))
	// Output:
	// TraceIdRatioBased{1}
	// 1
}
