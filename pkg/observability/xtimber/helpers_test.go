package xtimber_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// =============================================================================
// 测试数据
// =============================================================================

const testConfigYAML = `
DEFAULT:
  level: ERROR
  tag: ""
  backtrace: false
  secondary_transport: false
  sink: rec
  sink_options:
    id: default
FILE:
  level: DEBUG
  tag: File
  sink_options:
    id: file
A:
  level: WARN
  tag: A
  sink_options: {id: a}
B:
  level: DEBUG
  tag: B
  sink_options: {id: b}
C:
  level: FATAL
  tag: C
  sink_options: {id: c}
TRACE:
  level: DEBUG
  tag: Trace
  backtrace: true
  sink_options: {id: trace}
NOSINK:
  level: DEBUG
  tag: Bare
  sink: ""
GHOST:
  level: DEBUG
  sink: nowhere
BROKEN:
  level: DEBUG
  sink_options: {id: fail}
CONSOLE:
  level: DEBUG
  tag: Console
  secondary_transport: true
  sink_options: {id: console}
BADLEVEL:
  level: loud
`

var errBoom = errors.New("boom")

// =============================================================================
// 记录型 sink
// =============================================================================

type event struct {
	Level   xtimber.Level
	Tag     string
	Message string
	Values  []xtimber.Value
}

type recorder struct {
	mu     sync.Mutex
	events []event
	err    error
	closed bool
}

func (r *recorder) Output(_ context.Context, level xtimber.Level, tag, message string, values []xtimber.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event{Level: level, Tag: tag, Message: message, Values: values})
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) Events() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// sinkBox 按 sink_options.id 记录工厂创建的 recorder，同 id 后创建的覆盖先创建的
type sinkBox struct {
	mu   sync.Mutex
	byID map[string]*recorder
	all  []*recorder
}

func newSinkBox() *sinkBox {
	return &sinkBox{byID: make(map[string]*recorder)}
}

func (b *sinkBox) factory(opts xconf.Options) (xtimber.Sink, error) {
	raw, _ := opts.Get("id")
	id, _ := raw.(string)
	if id == "fail" {
		return nil, errBoom
	}
	r := &recorder{}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID[id] = r
	b.all = append(b.all, r)
	return r, nil
}

func (b *sinkBox) get(t *testing.T, id string) *recorder {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.byID[id]
	require.True(t, ok, "no sink created for id %q", id)
	return r
}

func (b *sinkBox) created() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.all)
}

// syncBuffer 并发安全的 bytes.Buffer，用作兜底通道
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// =============================================================================
// 构造辅助
// =============================================================================

type fixture struct {
	reg      *xtimber.Registry
	sinks    *sinkBox
	fallback *syncBuffer
}

func newFixture(t *testing.T, opts ...xtimber.Option) *fixture {
	t.Helper()
	f := &fixture{sinks: newSinkBox(), fallback: &syncBuffer{}}
	all := append([]xtimber.Option{
		xtimber.WithSink("rec", f.sinks.factory),
		xtimber.WithFallback(f.fallback),
	}, opts...)
	var err error
	f.reg, err = xtimber.NewRegistry(newTestStore(t), all...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.reg.Close())
	})
	return f
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
