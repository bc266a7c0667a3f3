package xsink

import (
	"fmt"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xlog"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// FileOptions 是 file sink 的选项
type FileOptions struct {
	// File 日志文件路径，必填
	File string `mapstructure:"file"`

	// Format 输出格式：text（默认）或 json
	Format string `mapstructure:"format"`

	// MaxSizeMB 单个文件的最大大小，超过后轮转
	MaxSizeMB int `mapstructure:"max_size_mb"`

	// MaxBackups 保留的旧文件个数
	MaxBackups int `mapstructure:"max_backups"`

	// MaxAgeDays 旧文件保留天数
	MaxAgeDays int `mapstructure:"max_age_days"`

	// Compress 是否 gzip 压缩旧文件
	Compress bool `mapstructure:"compress"`

	// LocalTime 备份文件名是否使用本地时间
	LocalTime bool `mapstructure:"local_time"`
}

func defaultFileOptions() FileOptions {
	return FileOptions{
		MaxSizeMB:  xlog.DefaultMaxSizeMB,
		MaxBackups: xlog.DefaultMaxBackups,
		MaxAgeDays: xlog.DefaultMaxAgeDays,
		LocalTime:  true,
	}
}

// NewFile 是 file sink 的工厂：按大小轮转的日志文件
func NewFile(opts xconf.Options) (xtimber.Sink, error) {
	cfg := defaultFileOptions()
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	if cfg.File == "" {
		return nil, fmt.Errorf("%w: file", ErrMissingOption)
	}
	return NewFileStream(cfg)
}

// NewFileStream 按已解码的选项打开文件 sink
func NewFileStream(cfg FileOptions) (*Stream, error) {
	return newStream(xlog.New().
		SetFormat(cfg.Format).
		SetRotation(cfg.File,
			xlog.WithMaxSize(cfg.MaxSizeMB),
			xlog.WithMaxBackups(cfg.MaxBackups),
			xlog.WithMaxAge(cfg.MaxAgeDays),
			xlog.WithCompress(cfg.Compress),
			xlog.WithLocalTime(cfg.LocalTime),
		))
}
