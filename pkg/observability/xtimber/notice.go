package xtimber

import (
	"context"
	"io"
	"log/slog"

	"github.com/omeyang/xtimber/pkg/observability/xlog"
)

// diagnostics 是进程级的兜底通道：没有 sink 时的事件与配置问题通知都写到这里。
//
// 写入失败只计数，不会再反馈给调用方。
type diagnostics struct {
	log     xlog.Logger
	cleanup func() error
	metrics *instruments
}

func newDiagnostics(w io.Writer, metrics *instruments) (*diagnostics, error) {
	logger, cleanup, err := xlog.New().
		SetOutput(w).
		SetLevel(xlog.LevelDebug).
		SetFormat("text").
		SetAttrs(xlog.Component("xtimber")).
		Build()
	if err != nil {
		return nil, err
	}
	return &diagnostics{log: logger, cleanup: cleanup, metrics: metrics}, nil
}

// notice 写一行配置问题通知
func (d *diagnostics) notice(ctx context.Context, reason, caller, msg string, attrs ...slog.Attr) {
	d.metrics.misconfiguration(ctx, reason)
	all := make([]slog.Attr, 0, len(attrs)+2)
	all = append(all, xlog.Reason(reason), xlog.Caller(caller))
	all = append(all, attrs...)
	_ = d.log.Log(ctx, xlog.LevelWarn, msg, all...) //nolint:errcheck // 兜底通道，失败无处可报
}

// deliver 把没有 sink 的事件写到兜底通道
func (d *diagnostics) deliver(ctx context.Context, level Level, tag, msg string, values []Value) {
	attrs := []slog.Attr{xlog.Tag(tag)}
	if len(values) > 0 {
		attrs = append(attrs, slog.Any("values", PrettyPrintAll(values)))
	}
	_ = d.log.Log(ctx, level.XLevel(), msg, attrs...) //nolint:errcheck // 兜底通道，失败无处可报
}

func (d *diagnostics) close() error {
	return d.cleanup()
}
