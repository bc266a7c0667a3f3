package xtimber

import "context"

// Severity 辅助通道的严重程度
type Severity string

// 固定的三档严重程度
const (
	SeverityLog   Severity = "log"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// SeverityOf 映射级别：>= ERROR 为 error，>= WARN 为 warn，其余为 log
func SeverityOf(l Level) Severity {
	switch {
	case l >= LevelError:
		return SeverityError
	case l >= LevelWarn:
		return SeverityWarn
	default:
		return SeverityLog
	}
}

// Transport 辅助通道，与主 sink 并行接收事件（例如浏览器控制台桥）。
//
// 实现自行负责并发安全。Emit 的错误和 panic 都不会传给 Log 的调用方。
type Transport interface {
	// Emit 发送一条已注解的消息
	Emit(severity Severity, message string) error

	// Streaming 报告承载通道是否已开始输出（例如 HTTP 响应头已发送），
	// 为 true 时跳过发送
	Streaming() bool
}

// TransportLookup 从请求上下文中取出 Transport
type TransportLookup func(ctx context.Context) (Transport, bool)

//go:generate mockgen -source=transport.go -destination=transport_mock_test.go -package=xtimber_test
