package xtimber

import (
	"context"
	"fmt"
	"io"

	"github.com/omeyang/xtimber/pkg/config/xconf"
)

// Sink 主输出。Logger 只通过这一个方法投递事件。
//
// 返回的错误原样（包装 ErrSinkOutput 后）传给 Log 的调用方。
// 实现需要自行保证并发安全；持有资源的 Sink 应实现 io.Closer，
// Registry.Close 会关闭它。
type Sink interface {
	Output(ctx context.Context, level Level, tag, message string, values []Value) error
}

// SinkFactory 用 profile 中的 sink_options 构造 Sink
type SinkFactory func(opts xconf.Options) (Sink, error)

// SinkFunc 让普通函数满足 Sink
type SinkFunc func(ctx context.Context, level Level, tag, message string, values []Value) error

// Output 实现 Sink
func (f SinkFunc) Output(ctx context.Context, level Level, tag, message string, values []Value) error {
	return f(ctx, level, tag, message, values)
}

// validateSinks 校验工厂表：名字非空、工厂非 nil
func validateSinks(factories map[string]SinkFactory) error {
	for name, factory := range factories {
		if name == "" {
			return ErrEmptySinkName
		}
		if factory == nil {
			return fmt.Errorf("%w: %q", ErrNilSinkFactory, name)
		}
	}
	return nil
}

// closeSink 关闭实现了 io.Closer 的 Sink
func closeSink(s Sink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
