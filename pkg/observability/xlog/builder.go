package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// 支持的输出格式
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Builder 组装一个 Logger。
//
// 第一个配置错误生效，之后的 Set 调用被跳过，错误在 Build 时返回。
type Builder struct {
	output io.Writer
	closer io.Closer
	level  Level
	format string
	attrs  []slog.Attr
	err    error
}

// New 返回写到 stderr、text 格式、DEBUG 级别的 Builder
func New() *Builder {
	return &Builder{output: os.Stderr, level: LevelDebug, format: FormatText}
}

// SetOutput 设置输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if b.err != nil {
		return b
	}
	if w == nil {
		b.err = ErrNilOutput
		return b
	}
	b.output = w
	return b
}

// SetRotation 输出到按大小轮转的文件，Build 返回的 cleanup 负责关闭
func (b *Builder) SetRotation(filename string, opts ...RotationOption) *Builder {
	if b.err != nil {
		return b
	}
	w, err := NewRotatingWriter(filename, opts...)
	if err != nil {
		b.err = err
		return b
	}
	b.output, b.closer = w, w
	return b
}

// SetLevel 设置最低输出级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.level = level
	return b
}

// SetFormat 设置 text 或 json，空串表示 text
func (b *Builder) SetFormat(format string) *Builder {
	if b.err != nil {
		return b
	}
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "":
		b.format = FormatText
	case FormatText, FormatJSON:
		b.format = f
	default:
		b.err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return b
}

// SetAttrs 追加每条记录都带的属性
func (b *Builder) SetAttrs(attrs ...slog.Attr) *Builder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

// Build 返回 Logger 与可重复调用的 cleanup。
// 出错时已经打开的轮转文件会被关闭。
func (b *Builder) Build() (Logger, func() error, error) {
	if b.err != nil {
		if b.closer != nil {
			_ = b.closer.Close() //nolint:errcheck // 已有配置错误
		}
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{Level: slog.Level(b.level), ReplaceAttr: renameLevel}
	var h slog.Handler
	if b.format == FormatJSON {
		h = slog.NewJSONHandler(b.output, opts)
	} else {
		h = slog.NewTextHandler(b.output, opts)
	}
	if len(b.attrs) > 0 {
		h = h.WithAttrs(b.attrs)
	}

	closer := b.closer
	cleanup := sync.OnceValue(func() error {
		if closer == nil {
			return nil
		}
		return closer.Close()
	})
	return &recordLogger{handler: h}, cleanup, nil
}
