package xsink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xlog"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// ZapOptions 是 zap sink 的选项
type ZapOptions struct {
	// Output 为 stderr（默认）或 stdout；设置了 File 时忽略
	Output string `mapstructure:"output"`

	// File 非空时写入按大小轮转的文件
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func defaultZapOptions() ZapOptions {
	return ZapOptions{
		Output:     "stderr",
		MaxSizeMB:  xlog.DefaultMaxSizeMB,
		MaxBackups: xlog.DefaultMaxBackups,
		MaxAgeDays: xlog.DefaultMaxAgeDays,
	}
}

// Zap 用 zapcore 的 JSON 编码器写事件，每个事件一行。
//
// 直接调用 Core.Write：FATAL 事件只是记录，不会像 zap.Logger.Fatal 那样退出进程。
type Zap struct {
	core   zapcore.Core
	closer io.Closer
	now    func() time.Time
	closed atomic.Bool
}

var _ xtimber.Sink = (*Zap)(nil)

// NewZap 是 zap sink 的工厂
func NewZap(opts xconf.Options) (xtimber.Sink, error) {
	cfg := defaultZapOptions()
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}

	if cfg.File != "" {
		w, err := xlog.NewRotatingWriter(cfg.File,
			xlog.WithMaxSize(cfg.MaxSizeMB),
			xlog.WithMaxBackups(cfg.MaxBackups),
			xlog.WithMaxAge(cfg.MaxAgeDays),
			xlog.WithCompress(cfg.Compress),
		)
		if err != nil {
			return nil, err
		}
		return NewZapSink(w, w), nil
	}

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		return NewZapSink(os.Stderr, nil), nil
	case "stdout":
		return NewZapSink(os.Stdout, nil), nil
	default:
		return nil, fmt.Errorf("%w: unknown output %q", ErrInvalidOptions, cfg.Output)
	}
}

// NewZapSink 创建写到 w 的 zap sink；closer 非 nil 时 Close 会关闭它
func NewZapSink(w io.Writer, closer io.Closer) *Zap {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return &Zap{core: core, closer: closer, now: time.Now}
}

// Output 实现 xtimber.Sink
func (z *Zap) Output(_ context.Context, level xtimber.Level, tag, message string, values []xtimber.Value) error {
	if z.closed.Load() {
		return ErrClosed
	}
	fields := make([]zap.Field, 0, 2)
	if tag != "" {
		fields = append(fields, zap.String(xlog.KeyTag, tag))
	}
	if len(values) > 0 {
		fields = append(fields, zap.Reflect(KeyValues, values))
	}
	return z.core.Write(zapcore.Entry{
		Level:   zapLevel(level),
		Time:    z.now(),
		Message: message,
	}, fields)
}

// Close 刷新缓冲并关闭底层文件，可重复调用
func (z *Zap) Close() error {
	if z.closed.Swap(true) {
		return nil
	}
	// stderr/stdout 的 Sync 在部分平台上返回 EINVAL，忽略
	_ = z.core.Sync() //nolint:errcheck // 见上
	if z.closer != nil {
		return z.closer.Close()
	}
	return nil
}

func zapLevel(l xtimber.Level) zapcore.Level {
	switch {
	case l >= xtimber.LevelFatal:
		return zapcore.FatalLevel
	case l >= xtimber.LevelError:
		return zapcore.ErrorLevel
	case l >= xtimber.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.DebugLevel
	}
}
