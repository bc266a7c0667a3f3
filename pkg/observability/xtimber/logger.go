package xtimber

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xlog"
)

// Logger 由一组 token 构造出的日志实例。
//
// 构造完成后配置不再变化，可被多个 goroutine 并发使用。
// 一次调用依次经过：级别过滤 → 调用位置注解 → 主 sink → 辅助通道 → 子 logger。
type Logger struct {
	reg       *Registry
	opts      xconf.Options
	profile   Profile
	sink      Sink
	secondary bool
	children  []*Logger

	// needsSite 为 true 时在入口处捕获调用栈（自身或子 logger 开启了
	// backtrace，或缺少 sink 需要在通知中报告位置）
	needsSite bool

	closeOnce sync.Once
	closeErr  error
}

// =============================================================================
// 构造
// =============================================================================

// newLogger 按 token 序列构造 Logger。构造从不失败：
// 各种配置问题退化为 DEFAULT 或无 sink 模式，并写一条通知。
func newLogger(ctx context.Context, reg *Registry, tokens []Token, child bool, site *callSite) *Logger {
	l := &Logger{reg: reg}

	primary := Default
	if len(tokens) > 0 {
		primary = tokens[0]
	}
	l.opts = reg.resolve(ctx, primary, site)
	l.configure(ctx, child, site)

	if len(tokens) > 1 {
		for _, t := range tokens[1:] {
			if t.IsOverride() {
				l.opts = xconf.Merge(l.opts, t.Overrides())
				l.configure(ctx, child, site)
				continue
			}
			l.children = append(l.children, newLogger(ctx, reg, []Token{t}, true, site))
		}
	}

	l.needsSite = l.profile.Backtrace || l.sink == nil
	for _, c := range l.children {
		l.needsSite = l.needsSite || c.needsSite
	}
	return l
}

// configure 解码当前配置并（重新）实例化 sink
func (l *Logger) configure(ctx context.Context, child bool, site *callSite) {
	diag := l.reg.diag

	p, err := DecodeProfile(l.opts)
	if err != nil {
		diag.notice(ctx, reasonInvalidProfile, site.location(), "invalid profile values, using built-in defaults", xlog.Err(err))
	}

	if l.sink != nil {
		if err := closeSink(l.sink); err != nil {
			diag.notice(ctx, reasonSinkClose, site.location(), "close replaced sink failed", xlog.Err(err))
		}
		l.sink = nil
	}

	if p.Sink != "" {
		factory, ok := l.reg.sinks[p.Sink]
		switch {
		case !ok:
			diag.notice(ctx, reasonUnknownSink, site.location(), "unknown sink, events go to the fallback channel",
				xlog.Tag(p.Tag), xlog.Component(p.Sink))
		default:
			s, err := factory(p.SinkOptions)
			if err != nil {
				diag.notice(ctx, reasonSinkFactory, site.location(), "sink construction failed, events go to the fallback channel",
					xlog.Component(p.Sink), xlog.Err(err))
			} else {
				l.sink = s
			}
		}
	}

	l.profile = p
	l.secondary = p.SecondaryTransport && !child
}

// =============================================================================
// 投递
// =============================================================================

// Log 以指定级别记录一条消息。values 会被转换为 Value 原样交给 sink。
//
// 低于阈值或空消息直接返回 nil；只有 sink 的错误会返回给调用方。
//
//go:noinline
func (l *Logger) Log(ctx context.Context, level Level, msg string, values ...any) error {
	return l.entry(ctx, level, msg, values)
}

// Debug 记录 DEBUG 级别消息
//
//go:noinline
func (l *Logger) Debug(ctx context.Context, msg string, values ...any) error {
	return l.entry(ctx, LevelDebug, msg, values)
}

// Warn 记录 WARN 级别消息
//
//go:noinline
func (l *Logger) Warn(ctx context.Context, msg string, values ...any) error {
	return l.entry(ctx, LevelWarn, msg, values)
}

// Error 记录 ERROR 级别消息
//
//go:noinline
func (l *Logger) Error(ctx context.Context, msg string, values ...any) error {
	return l.entry(ctx, LevelError, msg, values)
}

// Fatal 记录 FATAL 级别消息，不会终止进程
//
//go:noinline
func (l *Logger) Fatal(ctx context.Context, msg string, values ...any) error {
	return l.entry(ctx, LevelFatal, msg, values)
}

// entry 是所有公开方法的公共入口：业务代码 → Log/Debug/… → entry
//
//go:noinline
func (l *Logger) entry(ctx context.Context, level Level, msg string, args []any) error {
	if l == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(level) || msg == "" {
		l.reg.metrics.event(ctx, level, l.profile.Tag, outcomeFiltered)
		return nil
	}

	var site *callSite
	if l.needsSite {
		// skip=2: entry(0) → Log/Debug/…(1) → 业务代码(2)
		site = captureSite(2)
	}
	return l.dispatch(ctx, level, msg, toValues(args), site)
}

func (l *Logger) dispatch(ctx context.Context, level Level, msg string, values []Value, site *callSite) error {
	metrics := l.reg.metrics
	tag := l.profile.Tag

	if !l.Enabled(level) || msg == "" {
		metrics.event(ctx, level, tag, outcomeFiltered)
		return nil
	}

	annotated := msg
	if l.profile.Backtrace {
		annotated = site.annotate(msg)
	}

	if l.sink != nil {
		if err := l.sink.Output(ctx, level, tag, annotated, values); err != nil {
			metrics.event(ctx, level, tag, outcomeFailed)
			return fmt.Errorf("%w: sink %q: %w", ErrSinkOutput, l.profile.Sink, err)
		}
		metrics.event(ctx, level, tag, outcomeDelivered)
	} else {
		l.reg.diag.deliver(ctx, level, tag, annotated, values)
		l.reg.diag.notice(ctx, reasonNoSink, site.location(), "logger has no sink, event written to the fallback channel",
			xlog.Tag(tag))
		metrics.event(ctx, level, tag, outcomeFallback)
	}

	if l.secondary {
		l.emitSecondary(ctx, level, annotated, site)
	}

	for _, c := range l.children {
		if err := c.dispatch(ctx, level, msg, values, site); err != nil {
			return err
		}
	}
	return nil
}

// emitSecondary 镜像到辅助通道。错误与 panic 都转成通知，不影响调用方。
func (l *Logger) emitSecondary(ctx context.Context, level Level, msg string, site *callSite) {
	lookup := l.reg.transport
	if lookup == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.reg.diag.notice(ctx, reasonTransportPanic, site.location(), "secondary transport panicked",
				xlog.Err(fmt.Errorf("panic: %v", r)))
		}
	}()

	t, ok := lookup(ctx)
	if !ok || t == nil || t.Streaming() {
		return
	}
	if err := t.Emit(SeverityOf(level), msg); err != nil {
		l.reg.diag.notice(ctx, reasonTransportFailed, site.location(), "secondary transport emit failed", xlog.Err(err))
	}
}

func toValues(args []any) []Value {
	if len(args) == 0 {
		return nil
	}
	values := make([]Value, len(args))
	for i, a := range args {
		values[i] = Any(a)
	}
	return values
}

// =============================================================================
// 查询与关闭
// =============================================================================

// Enabled 报告该级别是否会通过本 logger 的过滤
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.profile.Level
}

// Profile 返回解码后的有效配置
func (l *Logger) Profile() Profile { return l.profile }

// Options 返回合并后的原始配置
func (l *Logger) Options() xconf.Options { return l.opts }

// Tag 返回事件标签
func (l *Logger) Tag() string { return l.profile.Tag }

// HasSink 报告主 sink 是否可用
func (l *Logger) HasSink() bool { return l.sink != nil }

// SecondaryTransport 报告是否会镜像到辅助通道
func (l *Logger) SecondaryTransport() bool { return l.secondary }

// Children 返回子 logger，顺序与构造时的 token 一致
func (l *Logger) Children() []*Logger { return slices.Clone(l.children) }

// Close 关闭自身与子 logger 的 sink，可重复调用
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		var errs []error
		if l.sink != nil {
			if err := closeSink(l.sink); err != nil {
				errs = append(errs, fmt.Errorf("xtimber: close sink %q: %w", l.profile.Sink, err))
			}
		}
		for _, c := range l.children {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		l.closeErr = errors.Join(errs...)
	})
	return l.closeErr
}
