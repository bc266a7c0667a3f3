package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xtimber/pkg/observability/xconsole"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// shutdownTimeout 优雅关闭等待在途请求的上限
const shutdownTimeout = 5 * time.Second

// createServeCommand 创建 serve 子命令。
func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动演示 HTTP 服务，请求日志同时写入 X-ChromeLogger-Data 响应头",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "监听地址",
				Value: "127.0.0.1:8080",
			},
			&cli.StringSliceFlag{
				Name:  "profile",
				Usage: "处理请求时使用的 token（可重复）",
				Value: []string{"FIREPHP"},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tokens, err := parseTokens(cmd.StringSlice("profile"))
			if err != nil {
				return err
			}
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer closeQuietly(reg)

			server := &http.Server{
				Addr:              cmd.String("addr"),
				Handler:           xconsole.Middleware()(newDemoHandler(reg, tokens)),
				ReadHeaderTimeout: 5 * time.Second,
			}
			fmt.Fprintf(cmd.Root().Writer, "listening on %s\n", server.Addr)
			return serveHTTP(ctx, server)
		},
	}
}

// serveHTTP 运行 server 直到 ctx 结束，然后优雅关闭
func serveHTTP(ctx context.Context, server *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("xtimberctl: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newDemoHandler 每个请求通过 tokens 对应的 logger 记录一条 DEBUG 日志，
// 查询参数 level 与 msg 可追加一条指定级别的日志
func newDemoHandler(reg *xtimber.Registry, tokens []xtimber.Token) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := reg.Instance(tokens...)

		if err := log.Debug(ctx, "request", r.Method+" "+r.URL.Path); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if msg := r.URL.Query().Get("msg"); msg != "" {
			level := xtimber.LevelDebug
			if s := r.URL.Query().Get("level"); s != "" {
				parsed, err := xtimber.ParseLevel(s)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				level = parsed
			}
			if err := log.Log(ctx, level, msg); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "ok") //nolint:errcheck // 客户端断开时无需处理
	})
}
