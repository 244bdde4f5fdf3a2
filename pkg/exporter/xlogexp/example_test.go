package xlogexp_test

import (
	"context"
	"fmt"
	"os"

	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/exporter/xlogexp"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

func ExampleNew() {
	exp, err := xlogexp.New(os.Stdout, xlogexp.Config{Format: xlogexp.FormatJSON},
		xbackend.WithLogger(xlog.Discard()))
	if err != nil {
		fmt.Println(err)
		return
	}
	sp, err := xsdk.NewSimpleSpanProcessor(exp)
	if err != nil {
		fmt.Println(err)
		return
	}
	tp := xsdk.NewTracerProvider(xsdk.WithLogger(xlog.Discard()), xsdk.WithSpanProcessor(sp))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tp.Tracer("example").SpanBuilder("hello").Start(context.Background()).End()
	fmt.Println(exp.Stats().Exported)
}
