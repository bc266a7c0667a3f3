package xtimber_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// =============================================================================
// 场景
// =============================================================================

func TestLogger_FileScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.reg.Instance(xtimber.Named("FILE")).Debug(ctx, "hello"))
	require.NoError(t, f.reg.Instance().Debug(ctx, "hello"))

	got := f.sinks.get(t, "file").Events()
	require.Len(t, got, 1)
	assert.Equal(t, xtimber.LevelDebug, got[0].Level)
	assert.Equal(t, "File", got[0].Tag)
	assert.Equal(t, "hello", got[0].Message)

	assert.Empty(t, f.sinks.get(t, "default").Events(), "DEFAULT is ERROR, debug must be dropped")
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level xtimber.Level
		want  bool
	}{
		{xtimber.LevelDebug, false},
		{xtimber.Level(199), false},
		{xtimber.LevelWarn, true},
		{xtimber.LevelError, true},
		{xtimber.LevelFatal, true},
		{xtimber.Level(1000), true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			f := newFixture(t)
			l := f.reg.Instance(xtimber.Named("A"))

			assert.Equal(t, tt.want, l.Enabled(tt.level))
			require.NoError(t, l.Log(context.Background(), tt.level, "msg"))

			n := len(f.sinks.get(t, "a").Events())
			if tt.want {
				assert.Equal(t, 1, n)
			} else {
				assert.Zero(t, n)
			}
		})
	}
}

func TestLogger_LevelMethods(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("FILE"))
	ctx := context.Background()

	require.NoError(t, l.Debug(ctx, "d"))
	require.NoError(t, l.Warn(ctx, "w"))
	require.NoError(t, l.Error(ctx, "e"))
	require.NoError(t, l.Fatal(ctx, "f"))

	var levels []xtimber.Level
	for _, e := range f.sinks.get(t, "file").Events() {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []xtimber.Level{xtimber.LevelDebug, xtimber.LevelWarn, xtimber.LevelError, xtimber.LevelFatal}, levels)
}

func TestLogger_EmptyMessage(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("FILE"))

	require.NoError(t, l.Fatal(context.Background(), ""))
	assert.Empty(t, f.sinks.get(t, "file").Events())
}

func TestLogger_NilContext(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("FILE"))

	//nolint:staticcheck // 验证 nil ctx 不会 panic
	require.NoError(t, l.Debug(nil, "hello"))
	assert.Len(t, f.sinks.get(t, "file").Events(), 1)
}

func TestLogger_NilLogger(t *testing.T) {
	var l *xtimber.Logger
	assert.NoError(t, l.Error(context.Background(), "ignored"))
	assert.False(t, l.Enabled(xtimber.LevelFatal))
}

func TestLogger_Values(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("FILE"))

	require.NoError(t, l.Debug(context.Background(), "dump", 42, "s", map[string]any{"k": true}, nil))

	got := f.sinks.get(t, "file").Events()
	require.Len(t, got, 1)
	require.Len(t, got[0].Values, 4)
	assert.Equal(t, int64(42), got[0].Values[0].AsInt())
	assert.Equal(t, "s", got[0].Values[1].AsString())
	assert.True(t, got[0].Values[2].Equal(xtimber.Map(xtimber.F("k", true))))
	assert.True(t, got[0].Values[3].IsNull())
}

// =============================================================================
// 扇出
// =============================================================================

func TestLogger_FanOut(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("A"), xtimber.Named("B"), xtimber.Named("C"))
	ctx := context.Background()

	require.Len(t, l.Children(), 2)
	assert.Equal(t, "B", l.Children()[0].Tag())
	assert.Equal(t, "C", l.Children()[1].Tag())

	require.NoError(t, l.Warn(ctx, "warned"))
	assert.Len(t, f.sinks.get(t, "a").Events(), 1)
	assert.Len(t, f.sinks.get(t, "b").Events(), 1)
	assert.Empty(t, f.sinks.get(t, "c").Events(), "C is FATAL")

	require.NoError(t, l.Fatal(ctx, "fatal"))
	assert.Len(t, f.sinks.get(t, "a").Events(), 2)
	assert.Len(t, f.sinks.get(t, "b").Events(), 2)
	assert.Len(t, f.sinks.get(t, "c").Events(), 1)
}

func TestLogger_ParentFilterBlocksChildren(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("A"), xtimber.Named("B"))

	require.NoError(t, l.Debug(context.Background(), "quiet"))
	assert.Empty(t, f.sinks.get(t, "a").Events())
	assert.Empty(t, f.sinks.get(t, "b").Events(), "B accepts DEBUG but the parent filtered first")
}

func TestLogger_SinkErrorPropagates(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("A"), xtimber.Named("B"))
	f.sinks.get(t, "a").Fail(errBoom)

	err := l.Error(context.Background(), "lost")
	require.Error(t, err)
	assert.ErrorIs(t, err, xtimber.ErrSinkOutput)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), `sink "rec"`)
	assert.Empty(t, f.sinks.get(t, "b").Events(), "a sink failure stops fan-out")
}

func TestLogger_ChildSinkErrorPropagates(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("A"), xtimber.Named("B"), xtimber.Named("FILE"))
	f.sinks.get(t, "b").Fail(errBoom)

	err := l.Error(context.Background(), "partial")
	require.ErrorIs(t, err, errBoom)
	assert.Len(t, f.sinks.get(t, "a").Events(), 1)
	assert.Empty(t, f.sinks.get(t, "file").Events())
}

// =============================================================================
// 调用位置注解
// =============================================================================

func TestLogger_Backtrace(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("TRACE"))

	_, file, line, _ := runtime.Caller(0)
	require.NoError(t, l.Debug(context.Background(), "traced"))

	got := f.sinks.get(t, "trace").Events()
	require.Len(t, got, 1)
	msg := got[0].Message
	assert.True(t, strings.HasPrefix(msg, fmt.Sprintf("traced in %s on line #%d", file, line+1)), msg)
	assert.Contains(t, msg, `called from function "TestLogger_Backtrace" from line #`)
}

func TestLogger_BacktraceOff(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("FILE"))

	require.NoError(t, l.Debug(context.Background(), "plain"))
	got := f.sinks.get(t, "file").Events()
	require.Len(t, got, 1)
	assert.Equal(t, "plain", got[0].Message)
}

func TestLogger_BacktraceChildOnly(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("A"), xtimber.Named("TRACE"))

	_, file, line, _ := runtime.Caller(0)
	require.NoError(t, l.Warn(context.Background(), "mixed"))

	assert.Equal(t, "mixed", f.sinks.get(t, "a").Events()[0].Message)
	traced := f.sinks.get(t, "trace").Events()[0].Message
	assert.Contains(t, traced, fmt.Sprintf("mixed in %s on line #%d", file, line+1))
}

// =============================================================================
// 降级
// =============================================================================

func TestLogger_UnknownProfile(t *testing.T) {
	f := newFixture(t)

	var l *xtimber.Logger
	require.NotPanics(t, func() {
		l = f.reg.Instance(xtimber.Named("MISSING"))
	})
	require.NotNil(t, l)
	assert.Equal(t, xtimber.LevelError, l.Profile().Level)
	assert.True(t, l.HasSink())

	out := f.fallback.String()
	assert.Equal(t, 1, strings.Count(out, "reason=unknown_profile"), out)
	assert.Contains(t, out, "component=MISSING")
	assert.Contains(t, out, "logger_test.go:")
}

func TestLogger_NoSink(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("NOSINK"))
	require.False(t, l.HasSink())

	require.NoError(t, l.Debug(context.Background(), "orphan", "extra"))

	out := f.fallback.String()
	assert.Contains(t, out, "level=DEBUG msg=orphan")
	assert.Contains(t, out, "tag=Bare")
	assert.Contains(t, out, "reason=no_sink")
	assert.Contains(t, out, "logger_test.go:")
}

func TestLogger_UnknownSink(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("GHOST"))

	assert.False(t, l.HasSink())
	assert.Contains(t, f.fallback.String(), "reason=unknown_sink")
	require.NoError(t, l.Debug(context.Background(), "still delivered"))
	assert.Contains(t, f.fallback.String(), `msg="still delivered"`)
}

func TestLogger_SinkFactoryError(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("BROKEN"))

	assert.False(t, l.HasSink())
	out := f.fallback.String()
	assert.Contains(t, out, "reason=sink_factory")
	assert.Contains(t, out, "error=boom")
}

func TestLogger_InvalidProfile(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("BADLEVEL"))

	assert.Equal(t, xtimber.BuiltinProfile(), l.Profile())
	assert.Contains(t, f.fallback.String(), "reason=invalid_profile")
}

// =============================================================================
// 覆盖映射
// =============================================================================

func TestLogger_Override(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("FILE"), xtimber.Override(map[string]any{
		"tag":   "Custom",
		"level": "WARN",
	}))

	assert.Equal(t, "Custom", l.Tag())
	assert.Equal(t, xtimber.LevelWarn, l.Profile().Level)
	assert.Empty(t, l.Children())

	// 覆盖会重新实例化 sink，被替换的 sink 已关闭
	require.Equal(t, 2, f.sinks.created())
	assert.True(t, f.sinks.all[0].Closed())
	assert.False(t, f.sinks.all[1].Closed())

	ctx := context.Background()
	require.NoError(t, l.Debug(ctx, "dropped"))
	require.NoError(t, l.Warn(ctx, "kept"))
	got := f.sinks.get(t, "file").Events()
	require.Len(t, got, 1)
	assert.Equal(t, "Custom", got[0].Tag)
}

func TestLogger_OverrideAsPrimary(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Override(map[string]any{"level": "DEBUG", "tag": "Inline"}))

	assert.Equal(t, xtimber.LevelDebug, l.Profile().Level)
	assert.Equal(t, "Inline", l.Tag())
	assert.Equal(t, "rec", l.Profile().Sink, "inherits DEFAULT")
	assert.NotContains(t, f.fallback.String(), "unknown_profile")
}

func TestLogger_OverrideAfterChild(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("A"), xtimber.Named("B"), xtimber.Override(map[string]any{"tag": "A2"}))

	assert.Equal(t, "A2", l.Tag())
	require.Len(t, l.Children(), 1)
	assert.Equal(t, "B", l.Children()[0].Tag(), "overrides apply to the primary only")
}

func TestLogger_OptionsReflectMerge(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Instance(xtimber.Named("FILE"))

	v, ok := l.Options().Lookup("sink_options", "id")
	require.True(t, ok)
	assert.Equal(t, "file", v)
	assert.Equal(t, "rec", l.Profile().Sink)
}

func TestLogger_Close(t *testing.T) {
	f := newFixture(t)
	l := f.reg.Build(xtimber.Named("A"), xtimber.Named("B"))

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.True(t, f.sinks.get(t, "a").Closed())
	assert.True(t, f.sinks.get(t, "b").Closed())
}

type failingCloser struct{ recorder }

func (*failingCloser) Close() error { return errBoom }

func TestLogger_CloseError(t *testing.T) {
	f := newFixture(t, xtimber.WithSink("closer", func(xconf.Options) (xtimber.Sink, error) {
		return &failingCloser{}, nil
	}))
	l := f.reg.Build(xtimber.Override(map[string]any{"sink": "closer"}))

	err := l.Close()
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), `close sink "closer"`)
	assert.True(t, errors.Is(l.Close(), errBoom), "Close is idempotent and keeps its result")
}
