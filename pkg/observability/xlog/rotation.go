package xlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 轮转默认值
const (
	// DefaultMaxSizeMB 默认单个日志文件最大大小（MB）
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups 默认保留的备份文件数量
	DefaultMaxBackups = 7

	// DefaultMaxAgeDays 默认保留备份的天数
	DefaultMaxAgeDays = 30

	maxSizeMB  = 10240
	maxBackups = 1024
	maxAgeDays = 3650

	dirPerm = 0o750
)

// 轮转配置错误
var (
	// ErrEmptyFilename 文件名为空
	ErrEmptyFilename = errors.New("xlog: rotation filename is required")

	// ErrInvalidFilename 文件名包含空字节或指向目录
	ErrInvalidFilename = errors.New("xlog: invalid rotation filename")

	// ErrInvalidRotation 轮转参数越界或没有清理策略
	ErrInvalidRotation = errors.New("xlog: invalid rotation config")

	// ErrWriterClosed 轮转写入器已关闭
	ErrWriterClosed = errors.New("xlog: rotating writer is closed")
)

type rotationConfig struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
	localTime  bool
}

// RotationOption 轮转配置选项
type RotationOption func(*rotationConfig)

// WithMaxSize 设置单个日志文件最大大小（MB）
func WithMaxSize(mb int) RotationOption {
	return func(c *rotationConfig) { c.maxSizeMB = mb }
}

// WithMaxBackups 设置保留的备份文件数量，0 表示不限数量
func WithMaxBackups(n int) RotationOption {
	return func(c *rotationConfig) { c.maxBackups = n }
}

// WithMaxAge 设置保留备份的天数，0 表示不按天数清理
func WithMaxAge(days int) RotationOption {
	return func(c *rotationConfig) { c.maxAgeDays = days }
}

// WithCompress 设置是否 gzip 压缩备份
func WithCompress(compress bool) RotationOption {
	return func(c *rotationConfig) { c.compress = compress }
}

// WithLocalTime 设置备份文件名是否使用本地时间（默认 UTC）
func WithLocalTime(local bool) RotationOption {
	return func(c *rotationConfig) { c.localTime = local }
}

// RotatingWriter 基于 lumberjack 的按大小轮转写入器，并发安全
type RotatingWriter struct {
	logger *lumberjack.Logger
	closed atomic.Bool
}

// NewRotatingWriter 创建轮转写入器，父目录不存在时自动创建
func NewRotatingWriter(filename string, opts ...RotationOption) (*RotatingWriter, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, ErrEmptyFilename
	}
	if strings.ContainsRune(filename, 0) || strings.HasSuffix(filename, string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	cfg := rotationConfig{
		maxSizeMB:  DefaultMaxSizeMB,
		maxBackups: DefaultMaxBackups,
		maxAgeDays: DefaultMaxAgeDays,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	path := filepath.Clean(filename)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("xlog: create log directory: %w", err)
	}

	return &RotatingWriter{
		logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.maxSizeMB,
			MaxBackups: cfg.maxBackups,
			MaxAge:     cfg.maxAgeDays,
			Compress:   cfg.compress,
			LocalTime:  cfg.localTime,
		},
	}, nil
}

func (c *rotationConfig) validate() error {
	switch {
	case c.maxSizeMB <= 0 || c.maxSizeMB > maxSizeMB:
		return fmt.Errorf("%w: max size %d, want 1~%d", ErrInvalidRotation, c.maxSizeMB, maxSizeMB)
	case c.maxBackups < 0 || c.maxBackups > maxBackups:
		return fmt.Errorf("%w: max backups %d, want 0~%d", ErrInvalidRotation, c.maxBackups, maxBackups)
	case c.maxAgeDays < 0 || c.maxAgeDays > maxAgeDays:
		return fmt.Errorf("%w: max age %d, want 0~%d", ErrInvalidRotation, c.maxAgeDays, maxAgeDays)
	case c.maxBackups == 0 && c.maxAgeDays == 0:
		return fmt.Errorf("%w: max backups and max age cannot both be 0", ErrInvalidRotation)
	}
	return nil
}

// Filename 返回规范化后的文件路径
func (w *RotatingWriter) Filename() string {
	return w.logger.Filename
}

// Write 实现 io.Writer
func (w *RotatingWriter) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, ErrWriterClosed
	}
	n, err := w.logger.Write(p)
	if err != nil && w.closed.Load() {
		// 与 Close 并发时统一返回 ErrWriterClosed
		return n, ErrWriterClosed
	}
	return n, err
}

// Rotate 手动触发轮转
func (w *RotatingWriter) Rotate() error {
	if w.closed.Load() {
		return ErrWriterClosed
	}
	return w.logger.Rotate()
}

// Close 关闭写入器，重复调用返回 ErrWriterClosed
func (w *RotatingWriter) Close() error {
	if w.closed.Swap(true) {
		return ErrWriterClosed
	}
	return w.logger.Close()
}
