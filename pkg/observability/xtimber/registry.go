package xtimber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xlog"
)

// =============================================================================
// 选项
// =============================================================================

type options struct {
	sinks         map[string]SinkFactory
	transport     TransportLookup
	fallback      io.Writer
	meterProvider metric.MeterProvider
	err           error
}

// Option 配置 Registry
type Option func(*options)

func defaultOptions() *options {
	return &options{
		sinks:         make(map[string]SinkFactory),
		fallback:      os.Stderr,
		meterProvider: otel.GetMeterProvider(),
	}
}

// WithSink 注册一个 sink 工厂，profile 的 sink 字段按名字引用它
func WithSink(name string, factory SinkFactory) Option {
	return func(o *options) {
		if o.err != nil {
			return
		}
		if _, dup := o.sinks[name]; dup {
			o.err = fmt.Errorf("%w: %q", ErrDuplicateSink, name)
			return
		}
		o.sinks[name] = factory
	}
}

// WithSinks 批量注册 sink 工厂，例如 xsink.Builtin()
func WithSinks(factories map[string]SinkFactory) Option {
	return func(o *options) {
		for name, factory := range factories {
			WithSink(name, factory)(o)
		}
	}
}

// WithTransport 设置辅助通道查找函数
func WithTransport(lookup TransportLookup) Option {
	return func(o *options) {
		o.transport = lookup
	}
}

// WithFallback 设置兜底通道，默认 os.Stderr。nil 被忽略。
func WithFallback(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.fallback = w
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认使用全局 provider。nil 被忽略。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		if provider != nil {
			o.meterProvider = provider
		}
	}
}

// =============================================================================
// Registry
// =============================================================================

// Registry 按 token 序列缓存 Logger：相同的序列总是得到同一个实例。
//
// Registry 拥有它构造的所有 Logger 及其 sink，Close 统一释放。
type Registry struct {
	store     *xconf.Store
	sinks     map[string]SinkFactory
	transport TransportLookup
	diag      *diagnostics
	metrics   *instruments

	mu      sync.Mutex
	root    keyNode
	loggers []*Logger
	closed  bool
}

// NewRegistry 创建 Registry。sink 工厂表在这里一次性校验。
func NewRegistry(store *xconf.Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if err := validateSinks(o.sinks); err != nil {
		return nil, err
	}

	metrics, err := newInstruments(o.meterProvider)
	if err != nil {
		return nil, err
	}
	diag, err := newDiagnostics(o.fallback, metrics)
	if err != nil {
		return nil, fmt.Errorf("xtimber: create fallback logger: %w", err)
	}

	return &Registry{
		store:     store,
		sinks:     maps.Clone(o.sinks),
		transport: o.transport,
		diag:      diag,
		metrics:   metrics,
	}, nil
}

// Instance 返回 token 序列对应的 Logger，不存在时构造并缓存。
// 不带参数等价于 Instance(Default)。Registry 关闭后返回 nil。
//
//go:noinline
func (r *Registry) Instance(tokens ...Token) *Logger {
	if len(tokens) == 0 {
		tokens = []Token{Default}
	}
	key := KeyOf(tokens...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	if l := r.root.lookup(key); l != nil {
		return l
	}

	// skip=1: 报告 Instance 的调用方
	l := newLogger(context.Background(), r, tokens, false, captureSite(1))
	r.root.store(key, l)
	r.loggers = append(r.loggers, l)
	return l
}

// Build 构造一个不进入缓存的 Logger，调用方负责 Close
//
//go:noinline
func (r *Registry) Build(tokens ...Token) *Logger {
	return newLogger(context.Background(), r, tokens, false, captureSite(1))
}

// Store 返回配置来源
func (r *Registry) Store() *xconf.Store { return r.store }

// Sinks 返回已注册的 sink 名（已排序）
func (r *Registry) Sinks() []string {
	return slices.Sorted(maps.Keys(r.sinks))
}

// Len 返回缓存的 Logger 数量
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loggers)
}

// Close 关闭所有缓存 Logger 的 sink，可重复调用
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, l := range r.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.diag.close(); err != nil {
		errs = append(errs, err)
	}
	r.loggers = nil
	r.root = keyNode{}
	return errors.Join(errs...)
}

// resolve 取得主 token 的配置：null 为 DEFAULT，名字经 Store 查找，
// 覆盖映射直接合并在 DEFAULT 上
func (r *Registry) resolve(ctx context.Context, t Token, site *callSite) xconf.Options {
	switch {
	case t.IsDefault():
		return r.store.Default()
	case t.IsOverride():
		return xconf.Merge(r.store.Default(), t.Overrides())
	default:
		opts, ok := r.store.Resolve(t.Name())
		if !ok {
			r.diag.notice(ctx, reasonUnknownProfile, site.location(), "unknown profile, using DEFAULT",
				xlog.Component(t.Name()))
		}
		return opts
	}
}
