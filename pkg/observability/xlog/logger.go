package xlog

import (
	"context"
	"log/slog"
	"time"
)

var _ Logger = (*recordLogger)(nil)

// recordLogger 是 Builder 产出的 Logger
type recordLogger struct {
	handler slog.Handler
}

// Log 写一条记录并返回写入错误
func (l *recordLogger) Log(ctx context.Context, level Level, msg string, attrs ...slog.Attr) error {
	if !l.handler.Enabled(ctx, slog.Level(level)) {
		return nil
	}
	// 调用位置由上层按需写进消息，这里不记录 PC
	r := slog.NewRecord(time.Now(), slog.Level(level), msg, 0)
	r.AddAttrs(attrs...)
	return l.handler.Handle(ctx, r)
}

// Enabled 报告该级别是否启用
func (l *recordLogger) Enabled(ctx context.Context, level Level) bool {
	return l.handler.Enabled(ctx, slog.Level(level))
}
