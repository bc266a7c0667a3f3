package xlog

import "log/slog"

// Level 是记录的严重程度，数值与 slog.Level 对齐
type Level slog.Level

// xtimber 用到的四档级别
const (
	LevelDebug = Level(slog.LevelDebug)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)

	// LevelFatal 比 Error 高一档，只标记严重程度，不终止进程
	LevelFatal = Level(slog.LevelError + 4)
)

// String 返回 DEBUG/WARN/ERROR/FATAL，其他数值沿用 slog 的写法（如 "INFO+2"）
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
		return slog.Level(l).String()
	}
}

// renameLevel 把顶层 level 属性改写为 Level.String，输出 FATAL 而不是 ERROR+4
func renameLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	if lv, ok := a.Value.Any().(slog.Level); ok {
		a.Value = slog.StringValue(Level(lv).String())
	}
	return a
}
