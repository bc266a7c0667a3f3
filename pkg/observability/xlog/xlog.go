package xlog

import (
	"context"
	"errors"
	"log/slog"
)

// 构建错误
var (
	// ErrNilOutput 输出目标为 nil
	ErrNilOutput = errors.New("xlog: nil output writer")

	// ErrUnknownFormat 输出格式不是 text 或 json
	ErrUnknownFormat = errors.New("xlog: unknown format")
)

// Logger 把一条记录渲染到输出目标。
//
// 与常见日志库不同，写入失败不会被吞掉：Log 直接返回 Handler 的错误，
// 由 sink 决定向上传播，或由诊断通道计数后丢弃。
type Logger interface {
	// Log 以指定级别写一条记录，级别未启用时返回 nil
	Log(ctx context.Context, level Level, msg string, attrs ...slog.Attr) error

	// Enabled 报告该级别的记录是否会被写出
	Enabled(ctx context.Context, level Level) bool
}
