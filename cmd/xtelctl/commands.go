package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/config/xconf"
	"github.com/omeyang/xtel/pkg/export/xpersist"
	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/exporter/xlogexp"
	"github.com/omeyang/xtel/pkg/lifecycle/xrun"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xpropagation"
	"github.com/omeyang/xtel/pkg/trace/xregistry"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

// defaultShutdownTimeout demo 退出时关闭 provider 的超时
const defaultShutdownTimeout = 5 * time.Second

// exitError 命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// cliUsageMarkers flag 解析器与命令路由产生的参数错误文本
var cliUsageMarkers = []string{
	"flag provided but not defined",
	"flag needs an argument",
	"invalid value",
	"No help topic for",
}

// isCLIUsageError 识别 urfave/cli 产生的参数错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, m := range cliUsageMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// newLogger 按 --log-level 构建写到 stderr 的诊断日志。
func newLogger(cmd *cli.Command, stderr io.Writer) (xlog.Logger, error) {
	logger, _, err := xlog.New().
		SetOutput(stderr).
		SetFormat("text").
		SetLevelString(cmd.String("log-level")).
		Build()
	if err != nil {
		return nil, usagef("--log-level: %v", err)
	}
	return logger, nil
}

func createCommands(stdout, stderr io.Writer) []*cli.Command {
	return []*cli.Command{
		createTraceparentCommand(stdout),
		createBaggageCommand(stdout),
		createPersistCommand(stdout, stderr),
		createDemoCommand(stdout, stderr),
	}
}

// =============================================================================
// traceparent
// =============================================================================

func createTraceparentCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "traceparent",
		Usage: "W3C traceparent 工具",
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "解析 traceparent header",
				ArgsUsage: "<header>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return usagef("traceparent parse 需要一个 header 参数")
					}
					return cmdTraceparentParse(stdout, cmd.Args().First())
				},
			},
			{
				Name:  "new",
				Usage: "生成随机 traceparent",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "unsampled", Usage: "不设置 sampled 标志"},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					return cmdTraceparentNew(stdout, xspanctx.NewRandomIDGenerator(), !cmd.Bool("unsampled"))
				},
			},
		},
	}
}

func cmdTraceparentParse(w io.Writer, header string) error {
	sc, err := xpropagation.ParseTraceparent(header)
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	fmt.Fprintf(w, "trace_id: %s\n", sc.TraceID())
	fmt.Fprintf(w, "span_id:  %s\n", sc.SpanID())
	fmt.Fprintf(w, "flags:    %s\n", sc.TraceFlags())
	fmt.Fprintf(w, "sampled:  %t\n", sc.IsSampled())
	return nil
}

func cmdTraceparentNew(w io.Writer, gen xspanctx.IDGenerator, sampled bool) error {
	sc := xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
		TraceID:    gen.NewTraceID(),
		SpanID:     gen.NewSpanID(),
		TraceFlags: xspanctx.TraceFlags(0).WithSampled(sampled),
	})
	fmt.Fprintln(w, xpropagation.FormatTraceparent(sc))
	return nil
}

// =============================================================================
// baggage
// =============================================================================

func createBaggageCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "baggage",
		Usage: "W3C baggage 工具",
		Commands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "解析 baggage header",
				ArgsUsage: "<header>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return usagef("baggage decode 需要一个 header 参数")
					}
					return cmdBaggageDecode(stdout, cmd.Args().First())
				},
			},
		},
	}
}

// cmdBaggageDecode 每行输出一个条目；header 中的非法条目被跳过，
// 整体无法解析时报参数错误。
func cmdBaggageDecode(w io.Writer, header string) error {
	b, err := xpropagation.DecodeBaggage(header)
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	for _, e := range b.Entries() {
		if e.Metadata != "" {
			fmt.Fprintf(w, "%s=%s;%s\n", e.Key, e.Value, e.Metadata)
			continue
		}
		fmt.Fprintf(w, "%s=%s\n", e.Key, e.Value)
	}
	return nil
}

// =============================================================================
// persist
// =============================================================================

func createPersistCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "persist",
		Usage: "查看与排空持久化目录",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "按创建时间列出批次文件",
				ArgsUsage: "<dir>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					orch, err := openPersistDir(cmd)
					if err != nil {
						return err
					}
					return cmdPersistList(stdout, orch)
				},
			},
			{
				Name:      "drain",
				Usage:     "把批次文件中的 span 输出到 stdout，成功后删除文件",
				ArgsUsage: "<dir>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Usage: "输出格式 (json/text)", Value: string(xlogexp.FormatJSON)},
					&cli.BoolFlag{Name: "keep", Usage: "输出后保留文件"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					orch, err := openPersistDir(cmd)
					if err != nil {
						return err
					}
					logger, err := newLogger(cmd, stderr)
					if err != nil {
						return err
					}
					exp, err := newStdoutExporter(stdout, cmd.String("format"), logger)
					if err != nil {
						return err
					}
					defer exp.Shutdown(context.WithoutCancel(ctx))
					return cmdPersistDrain(ctx, orch, exp, cmd.Bool("keep"), logger)
				},
			},
		},
	}
}

// openPersistDir 校验目录存在后打开，不会像 SDK 那样自动创建。
func openPersistDir(cmd *cli.Command) (*xpersist.FilesOrchestrator, error) {
	if cmd.Args().Len() != 1 {
		return nil, usagef("%s 需要一个目录参数", cmd.Name)
	}
	path := cmd.Args().First()
	info, err := os.Stat(path)
	if err != nil {
		return nil, usagef("%v", err)
	}
	if !info.IsDir() {
		return nil, usagef("%s 不是目录", path)
	}
	dir, err := xpersist.OpenDirectory(path)
	if err != nil {
		return nil, err
	}
	return xpersist.NewFilesOrchestrator(dir), nil
}

func cmdPersistList(w io.Writer, orch *xpersist.FilesOrchestrator) error {
	files, err := orch.AllFiles(nil)
	if err != nil {
		return err
	}
	for _, f := range files {
		created, _ := xpersist.CreationTime(f.Name())
		size, err := f.Size()
		if err != nil {
			return err
		}
		data, err := orch.Read(f)
		if err != nil {
			return err
		}
		spans := "?"
		if decoded, err := xpersist.DecodeChunks(data); err == nil {
			spans = fmt.Sprint(len(decoded))
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Name(), created.UTC().Format(time.RFC3339Nano), size, spans)
	}
	fmt.Fprintf(w, "total: %d\n", len(files))
	return nil
}

// cmdPersistDrain 从最旧的文件开始导出。无法解码的文件被跳过并保留；
// 导出失败时停止，剩余文件留给下次处理。
func cmdPersistDrain(ctx context.Context, orch *xpersist.FilesOrchestrator, exp xsdk.SpanExporter, keep bool, logger xlog.Logger) error {
	files, err := orch.AllFiles(nil)
	if err != nil {
		return err
	}
	var drained, skipped int
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := orch.Read(f)
		if err != nil {
			return err
		}
		spans, err := xpersist.DecodeChunks(data)
		if err != nil {
			logger.Warn(ctx, "skip undecodable file", slog.String("file", f.Name()), xlog.Err(err))
			skipped++
			continue
		}
		if res := exp.Export(ctx, spans); res != xsdk.ExportSuccess {
			return fmt.Errorf("export %s: %s", f.Name(), res)
		}
		drained += len(spans)
		if keep {
			continue
		}
		if err := orch.Delete(f); err != nil {
			return err
		}
	}
	logger.Info(ctx, "drain finished", xlog.Count(int64(drained)), slog.Int("skipped_files", skipped))
	if skipped > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func newStdoutExporter(stdout io.Writer, format string, logger xlog.Logger) (*xlogexp.Exporter, error) {
	exp, err := xlogexp.New(stdout, xlogexp.Config{Format: xlogexp.Format(format)}, xbackend.WithLogger(logger))
	if errors.Is(err, xlogexp.ErrUnknownFormat) {
		return nil, &usageError{msg: err.Error()}
	}
	return exp, err
}

// =============================================================================
// demo
// =============================================================================

// errDemoDone 达到 --count 后结束 Group
var errDemoDone = errors.New("demo finished")

func createDemoCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "经 BatchSpanProcessor 产生示例 span 并输出到 stdout",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "SDK 配置文件 (yaml/json)"},
			&cli.StringFlag{Name: "section", Usage: "配置文件中 SDK 配置所在的路径", Value: "telemetry"},
			&cli.IntFlag{Name: "count", Usage: "产生的 trace 数，0 表示直到收到信号", Value: 10},
			&cli.DurationFlag{Name: "interval", Usage: "两个 trace 之间的间隔", Value: 100 * time.Millisecond},
			&cli.StringFlag{Name: "format", Usage: "输出格式 (json/text)", Value: string(xlogexp.FormatJSON)},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger, err := newLogger(cmd, stderr)
			if err != nil {
				return err
			}
			sc, err := loadSDKConfig(cmd.String("config"), cmd.String("section"))
			if err != nil {
				return err
			}
			if sc.ServiceName == "" {
				sc.ServiceName = "xtelctl-demo"
			}
			count := cmd.Int("count")
			if count < 0 {
				return usagef("--count 不能为负数")
			}
			interval := cmd.Duration("interval")
			if interval <= 0 {
				return usagef("--interval 必须为正数")
			}
			exp, err := newStdoutExporter(stdout, cmd.String("format"), logger)
			if err != nil {
				return err
			}
			return runDemo(ctx, sc, exp, demoOptions{count: count, interval: interval, logger: logger})
		},
	}
}

func loadSDKConfig(path, section string) (xconf.SDKConfig, error) {
	if path == "" {
		return xconf.DefaultSDKConfig(), nil
	}
	cfg, err := xconf.New(path)
	if err != nil {
		return xconf.SDKConfig{}, usagef("--config: %v", err)
	}
	sc, err := xconf.LoadSDKConfig(cfg, section)
	if err != nil {
		return xconf.SDKConfig{}, usagef("--config: %v", err)
	}
	return sc, nil
}

type demoOptions struct {
	count    int
	interval time.Duration
	logger   xlog.Logger

	// runOpts 测试中用于关闭信号监听
	runOpts []xrun.Option
}

// runDemo 按配置组装 provider，周期性产生 trace，结束或收到信号后关闭 provider。
// 关闭过程会刷新批处理器与持久化目录。
func runDemo(ctx context.Context, sc xconf.SDKConfig, exp xsdk.SpanExporter, o demoOptions) error {
	popts, err := sc.Apply(exp, xpersist.WithLogger(o.logger))
	if err != nil {
		return err
	}
	reg, err := xregistry.New(xregistry.WithLogger(o.logger), xregistry.WithProviderOptions(popts...))
	if err != nil {
		return err
	}
	tracer := reg.Tracer("xtelctl/demo")

	emitted := 0
	emit := func(ctx context.Context) error {
		if o.count > 0 && emitted >= o.count {
			return errDemoDone
		}
		emitTrace(ctx, tracer, emitted)
		emitted++
		return nil
	}

	var shutdownErr error
	shutdown := func(ctx context.Context) error {
		shutdownErr = xrun.ShutdownOnDone(reg, defaultShutdownTimeout)(ctx)
		return shutdownErr
	}

	opts := append([]xrun.Option{xrun.WithLogger(o.logger), xrun.WithName("xtelctl-demo")}, o.runOpts...)
	err = xrun.RunWithOptions(ctx, opts, xrun.Ticker(o.interval, true, emit), shutdown)
	switch {
	case err == nil, errors.Is(err, errDemoDone), errors.Is(err, xrun.ErrSignal), errors.Is(err, context.Canceled):
	default:
		return errors.Join(err, shutdownErr)
	}
	if shutdownErr != nil {
		return shutdownErr
	}
	o.logger.Info(context.Background(), "demo finished", xlog.Count(int64(emitted)))
	return nil
}

// emitTrace 产生一个 server span 及其 client 子 span，每第五个 trace 标记为错误。
func emitTrace(ctx context.Context, tracer *xsdk.Tracer, seq int) {
	ctx, root, scope := tracer.SpanBuilder("GET /demo").
		SetSpanKind(xspanctx.SpanKindServer).
		SetAttributes(attribute.Int("demo.seq", seq), attribute.String("http.method", "GET")).
		StartActive(ctx)

	child := tracer.SpanBuilder("SELECT demo").
		SetSpanKind(xspanctx.SpanKindClient).
		SetAttributes(attribute.String("db.system", "demo")).
		Start(ctx)
	child.AddEvent("rows fetched", xsdk.WithAttributes(attribute.Int("rows", seq%7)))
	child.End()

	if seq%5 == 4 {
		root.RecordException(errors.New("simulated failure"))
		root.SetStatus(xsdk.StatusError, "simulated failure")
	} else {
		root.SetStatus(xsdk.StatusOk, "")
	}
	scope.Close()
	root.End()
}
