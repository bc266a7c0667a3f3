package xsink

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xlog"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// KeyValues 是事件附带值在输出中的字段名
const KeyValues = "values"

// Stream 把事件写成 slog 记录（text 或 json），底层是 xlog。
//
// 与 xlog 的级别方法不同，Stream 把写入错误返回给调用方。
type Stream struct {
	log     xlog.Logger
	cleanup func() error
	closed  atomic.Bool
}

var _ xtimber.Sink = (*Stream)(nil)

// StreamOptions 是 stderr/stdout sink 的选项
type StreamOptions struct {
	// Format 输出格式：text（默认）或 json
	Format string `mapstructure:"format"`
}

// NewStream 创建写到 w 的 Stream。format 为空时使用 text。
func NewStream(w io.Writer, format string) (*Stream, error) {
	return newStream(xlog.New().SetOutput(w).SetFormat(format))
}

func newStream(b *xlog.Builder) (*Stream, error) {
	logger, cleanup, err := b.SetLevel(xlog.LevelDebug).Build()
	if err != nil {
		return nil, err
	}
	return &Stream{log: logger, cleanup: cleanup}, nil
}

// Output 实现 xtimber.Sink
func (s *Stream) Output(ctx context.Context, level xtimber.Level, tag, message string, values []xtimber.Value) error {
	if s.closed.Load() {
		return ErrClosed
	}
	attrs := []slog.Attr{xlog.Tag(tag)}
	if len(values) > 0 {
		attrs = append(attrs, slog.Any(KeyValues, xtimber.PrettyPrintAll(values)))
	}
	return s.log.Log(ctx, level.XLevel(), message, attrs...)
}

// Close 释放底层资源（如轮转文件），可重复调用
func (s *Stream) Close() error {
	s.closed.Store(true)
	return s.cleanup()
}

// NewStderr 是 stderr sink 的工厂
func NewStderr(opts xconf.Options) (xtimber.Sink, error) {
	return newStdStream(os.Stderr, opts)
}

// NewStdout 是 stdout sink 的工厂
func NewStdout(opts xconf.Options) (xtimber.Sink, error) {
	return newStdStream(os.Stdout, opts)
}

func newStdStream(w io.Writer, opts xconf.Options) (xtimber.Sink, error) {
	var cfg StreamOptions
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	return NewStream(w, cfg.Format)
}
