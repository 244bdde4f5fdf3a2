// xtelctl 是 xtel 追踪 SDK 的命令行工具。
//
// 用法:
//
//	xtelctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	--log-level   诊断日志级别 (默认: warn)，诊断日志写到 stderr
//
// 命令:
//
//	traceparent parse <header>   解析 W3C traceparent
//	traceparent new              生成随机 traceparent
//	baggage decode <header>      解析 W3C baggage
//	persist ls <dir>             列出持久化目录中的批次文件
//	persist drain <dir>          把持久化目录中的 span 输出到 stdout 并删除文件
//	demo                         通过 BatchSpanProcessor 产生示例 span
//
// 退出码:
//
//	0: 成功
//	1: 执行失败
//	2: 参数错误（缺少参数、非法 header、未知命令等）
//
// 示例:
//
//	xtelctl traceparent parse 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//	xtelctl persist drain --format text /var/lib/app/spans
//	xtelctl demo --config sdk.yaml --count 20
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// createApp 创建 CLI 应用，命令输出写到 stdout。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xtelctl",
		Usage:     "xtel 追踪 SDK 命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "诊断日志级别 (debug/info/warn/error)",
				Value: "warn",
			},
		},
		Commands: createCommands(stdout, stderr),
		// 退出码统一由 run() 映射
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	err := app.Run(ctx, args)
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}
