package xsink

import "errors"

var (
	// ErrInvalidOptions 表示 sink_options 无法解码。
	ErrInvalidOptions = errors.New("xsink: invalid sink options")

	// ErrMissingOption 表示缺少必填选项。
	ErrMissingOption = errors.New("xsink: missing required option")

	// ErrNilClient 表示传入的 Redis 客户端为 nil。
	ErrNilClient = errors.New("xsink: nil redis client")

	// ErrClosed 表示 sink 已关闭。
	ErrClosed = errors.New("xsink: sink is closed")
)
