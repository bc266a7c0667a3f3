// xtimberctl 是 xtimber 配置与日志管线的命令行工具。
//
// 用法:
//
//	xtimberctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config       基础配置文件（yaml/json），缺省使用内置 DEFAULT
//	-e, --env          overlay 环境名（环境变量 ENVIRONMENT）
//	-d, --configs-dir  overlay 目录（环境变量 TIMBER_CONFIGS），
//	                   存在 <dir>/timber.<env>.yaml 时合并到基础配置之上
//
// 命令:
//
//	profiles           列出合并后文档中的 profile
//	resolve <token...> 打印 token 序列对应 logger 的有效配置与子 logger
//	emit <token...>    通过 token 序列对应的 logger 发送一条日志
//	watch              监视配置文件，每次重载后打印 profile 列表
//	serve              启动演示 HTTP 服务，日志同时写入 X-ChromeLogger-Data 响应头
//
// token 写法: DEFAULT、profile 名，或以 { 开头的 JSON 对象（覆盖项）。
//
// 退出码:
//
//	0: 成功
//	1: 执行失败
//	2: 参数错误
//
// 示例:
//
//	xtimberctl -c timber.yaml profiles
//	ENVIRONMENT=www TIMBER_CONFIGS=./configs xtimberctl -c timber.yaml resolve FILE
//	xtimberctl -c timber.yaml emit --level WARN -m "disk almost full" FILE '{"tag":"Disk"}'
//	xtimberctl -c timber.yaml serve --addr :8080 --profile FIREPHP
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtimber/pkg/config/xconf"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xtimberctl",
		Usage:   "xtimber 配置检查与日志发送工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "基础配置文件路径（yaml/json）",
			},
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "overlay 环境名",
				Sources: cli.EnvVars(xconf.EnvEnvironment),
			},
			&cli.StringFlag{
				Name:    "configs-dir",
				Aliases: []string{"d"},
				Usage:   "overlay 目录",
				Sources: cli.EnvVars(xconf.EnvConfigsDir),
			},
		},
		Commands: createCommands(),
		// 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runApp(ctx, createApp(), args)
}

// runApp 运行 app 并把错误映射为退出码
func runApp(ctx context.Context, app *cli.Command, args []string) int {
	err := app.Run(ctx, args)
	if err == nil {
		return 0
	}

	errOut := app.ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(errOut, "参数错误: %v\n", usageErr)
		return 2
	}
	if _, ok := err.(cli.ExitCoder); ok {
		return 2
	}
	fmt.Fprintf(errOut, "错误: %v\n", err)
	return 1
}

// usageError 表示参数错误，退出码为 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
