package xlog

import "log/slog"

// =============================================================================
// 常用属性 Key 常量
// =============================================================================

const (
	// KeyError 错误字段的标准 key
	KeyError = "error"

	// KeyTag 事件标签字段的标准 key
	KeyTag = "tag"

	// KeyReason 诊断原因字段的标准 key
	KeyReason = "reason"

	// KeyCaller 调用位置字段的标准 key
	KeyCaller = "caller"

	// KeyComponent 组件名称字段的标准 key
	KeyComponent = "component"
)

// =============================================================================
// 便捷属性构造函数
// =============================================================================

// Err 创建错误属性
// 如果 err 为 nil，返回空属性（会被忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Tag 创建标签属性，空标签返回空属性。
func Tag(tag string) slog.Attr {
	if tag == "" {
		return slog.Attr{}
	}
	return slog.String(KeyTag, tag)
}

// Reason 创建诊断原因属性
func Reason(reason string) slog.Attr {
	return slog.String(KeyReason, reason)
}

// Caller 创建调用位置属性
func Caller(location string) slog.Attr {
	return slog.String(KeyCaller, location)
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}
