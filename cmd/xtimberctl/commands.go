package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xconsole"
	"github.com/omeyang/xtimber/pkg/observability/xsink"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createProfilesCommand(),
		createResolveCommand(),
		createEmitCommand(),
		createWatchCommand(),
		createServeCommand(),
	}
}

// createProfilesCommand 创建 profiles 子命令。
func createProfilesCommand() *cli.Command {
	return &cli.Command{
		Name:    "profiles",
		Aliases: []string{"ls"},
		Usage:   "列出 profile",
		Action: func(_ context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			printProfiles(cmd.Root().Writer, store)
			return nil
		},
	}
}

// createResolveCommand 创建 resolve 子命令。
func createResolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "打印 token 序列对应 logger 的有效配置",
		ArgsUsage: "[token...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tokens, err := parseTokens(cmd.Args().Slice())
			if err != nil {
				return err
			}
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(reg)

			if len(tokens) == 0 {
				tokens = []xtimber.Token{xtimber.Default}
			}
			l := reg.Build(tokens...)
			defer func() { _ = l.Close() }() //nolint:errcheck // 只读检查

			return printLogger(cmd.Root().Writer, xtimber.KeyOf(tokens...), l)
		},
	}
}

// createEmitCommand 创建 emit 子命令。
func createEmitCommand() *cli.Command {
	return &cli.Command{
		Name:      "emit",
		Usage:     "通过 logger 发送一条日志",
		ArgsUsage: "[token...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "level",
				Aliases: []string{"l"},
				Usage:   "级别：DEBUG/WARN/ERROR/FATAL 或数值",
				Value:   xtimber.LevelDebug.String(),
			},
			&cli.StringFlag{
				Name:     "message",
				Aliases:  []string{"m"},
				Usage:    "日志消息",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "value",
				Usage: "附加值，按 JSON 解析，失败时作为字符串（可重复）",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level, err := xtimber.ParseLevel(cmd.String("level"))
			if err != nil {
				return usagef("%v", err)
			}
			tokens, err := parseTokens(cmd.Args().Slice())
			if err != nil {
				return err
			}
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(reg)

			values := parseValues(cmd.StringSlice("value"))
			return reg.Instance(tokens...).Log(ctx, level, cmd.String("message"), values...)
		},
	}
}

// createWatchCommand 创建 watch 子命令。
func createWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "监视配置文件并在重载后打印 profile 列表",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "防抖时间",
				Value: 100 * time.Millisecond,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			return watchStore(ctx, cmd.Root().Writer, store, cmd.Duration("debounce"))
		},
	}
}

// =============================================================================
// 实现
// =============================================================================

// openStore 按全局选项加载配置
func openStore(cmd *cli.Command) (*xconf.Store, error) {
	var opts []xconf.StoreOption
	if path := cmd.String("config"); path != "" {
		opts = append(opts, xconf.WithBaseFile(path))
	}
	opts = append(opts, xconf.WithOverlay(cmd.String("env"), cmd.String("configs-dir")))
	return xconf.NewStore(opts...)
}

// openRegistry 加载配置并创建带全部内置 sink 的 Registry，
// 通知写到命令的错误输出
func openRegistry(cmd *cli.Command, opts ...xtimber.Option) (*xtimber.Registry, error) {
	store, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	opts = append([]xtimber.Option{
		xtimber.WithSinks(xsink.Builtin()),
		xtimber.WithTransport(xconsole.Lookup),
		xtimber.WithFallback(cmd.Root().ErrWriter),
	}, opts...)
	return xtimber.NewRegistry(store, opts...)
}

func closeQuietly(reg *xtimber.Registry) {
	_ = reg.Close() //nolint:errcheck // 命令结束时的尽力清理
}

// parseTokens 解析命令行 token：DEFAULT、profile 名或 JSON 覆盖对象
func parseTokens(args []string) ([]xtimber.Token, error) {
	tokens := make([]xtimber.Token, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if !strings.HasPrefix(arg, "{") {
			tokens = append(tokens, xtimber.Named(arg))
			continue
		}
		var overrides map[string]any
		if err := json.Unmarshal([]byte(arg), &overrides); err != nil {
			return nil, usagef("invalid override %s: %v", arg, err)
		}
		tokens = append(tokens, xtimber.Override(overrides))
	}
	return tokens, nil
}

// parseValues 把每个参数按 JSON 解析，失败时保留原字符串
func parseValues(args []string) []any {
	values := make([]any, 0, len(args))
	for _, arg := range args {
		var v any
		if err := json.Unmarshal([]byte(arg), &v); err != nil {
			v = arg
		}
		values = append(values, v)
	}
	return values
}

func printProfiles(w io.Writer, store *xconf.Store) {
	for _, name := range store.Profiles() {
		fmt.Fprintln(w, name)
	}
	if path := store.OverlayPath(); path != "" {
		fmt.Fprintf(w, "# overlay: %s\n", path)
	}
}

// printLogger 打印 logger 树：每个 logger 一行标题，随后是缩进的有效配置
func printLogger(w io.Writer, key xtimber.Key, l *xtimber.Logger) error {
	fmt.Fprintf(w, "logger %s\n", key)
	return printTree(w, l, "")
}

func printTree(w io.Writer, l *xtimber.Logger, indent string) error {
	data, err := json.MarshalIndent(l.Options(), indent, "  ")
	if err != nil {
		return fmt.Errorf("xtimberctl: encode options: %w", err)
	}
	fmt.Fprintf(w, "%s%s\n", indent, data)
	for i, c := range l.Children() {
		fmt.Fprintf(w, "%schild %d (%s):\n", indent, i+1, c.Tag())
		if err := printTree(w, c, indent+"  "); err != nil {
			return err
		}
	}
	return nil
}

// watchStore 监视 store，直到 ctx 结束
func watchStore(ctx context.Context, w io.Writer, store *xconf.Store, debounce time.Duration) error {
	watcher, err := store.Watch(xconf.WithDebounce(debounce))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "watching %d file(s)\n", len(watcher.Targets()))
	return watcher.Run(ctx, func(s *xconf.Store, err error) {
		if err != nil {
			fmt.Fprintf(w, "reload failed: %v\n", err)
			return
		}
		fmt.Fprintln(w, "reloaded")
		printProfiles(w, s)
	})
}
