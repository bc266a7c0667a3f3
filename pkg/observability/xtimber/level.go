package xtimber

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/omeyang/xtimber/pkg/observability/xlog"
)

// Level 日志级别，按数值全序。
// 既用于标记事件，也用作 profile 的过滤阈值。
type Level int

// 级别常量，数值与配置文件中的数字写法一致
const (
	LevelDebug Level = 100
	LevelWarn  Level = 200
	LevelError Level = 300
	LevelFatal Level = 400
)

// String 返回级别名，非标准值返回 LEVEL(n)
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "LEVEL(" + strconv.Itoa(int(l)) + ")"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel 解析级别名（大小写不敏感，warning 等价于 warn）或十进制数值
func ParseLevel(s string) (Level, error) {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "debug":
		return LevelDebug, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return Level(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Severity 返回辅助通道使用的严重程度
func (l Level) Severity() Severity {
	return SeverityOf(l)
}

// XLevel 映射到 xlog 级别，非标准值向下取整到最近的标准级别
func (l Level) XLevel() xlog.Level {
	switch {
	case l >= LevelFatal:
		return xlog.LevelFatal
	case l >= LevelError:
		return xlog.LevelError
	case l >= LevelWarn:
		return xlog.LevelWarn
	default:
		return xlog.LevelDebug
	}
}
