// xipfilter 构建并查询命名 IP 范围表。
//
// 用法:
//
//	xipfilter [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      YAML/JSON 配置文件，提供日志、S3、Redis 的默认值
//	    --log-level   日志级别 (debug/info/warn/error)
//	    --log-format  日志格式 (text/json)
//
// 命令:
//
//	build   从 CSV 文件和/或 S3 前缀构建表，写出 JSON
//	match   在表中查找地址
//	stats   打印表的条目数和名称数
//	push    把 JSON 表写入 Redis 快照
//	pull    从 Redis 快照取回 JSON 表
//	serve   提供 HTTP 查询接口，表文件变更或定时刷新后自动替换
//
// 退出码:
//
//	0: 成功
//	1: 执行失败
//	2: 参数错误
//
// 示例:
//
//	xipfilter build -o table.json ranges.csv extra.csv
//	xipfilter -c xipfilter.yaml build -o table.json --bucket-prefix ranges/
//	xipfilter match -t table.json 1.1.1.9 2001:db8::1
//	xipfilter push -t table.json --redis-addr 127.0.0.1:6379
//	xipfilter serve -t table.json --addr :8080
//	xipfilter serve --from-redis --schedule "@every 1m"
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
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run 执行命令并把错误映射为退出码。
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := createApp()
	app.Reader = stdin
	app.Writer = stdout
	app.ErrWriter = stderr

	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xipfilter",
		Usage:   "命名 IP 范围表工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.yaml/.yml/.json）",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别，覆盖配置文件",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 text 或 json，覆盖配置文件",
			},
		},
		Commands:     createCommands(),
		OnUsageError: onUsageError,
		// 退出码由 run 统一处理，不让 urfave/cli 调用 os.Exit
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

// onUsageError 把 flag 解析错误归为参数错误。
func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{msg: err.Error()}
}

// setupSignalHandler 第一次信号取消 context，第二次强制退出。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
