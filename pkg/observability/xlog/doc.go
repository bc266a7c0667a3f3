// Package xlog 把 xtimber 的事件渲染成 log/slog 记录。
//
// 两个使用方：
//   - 诊断通道：配置问题通知与没有 sink 的事件
//   - stderr/stdout/file sink：按 text 或 json 输出
//
// Builder 采用第一个错误生效的写法：
//
//	logger, cleanup, err := xlog.New().
//		SetRotation("/var/log/app/timber.log", xlog.WithMaxSize(50)).
//		SetFormat("json").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// Logger.Log 返回写入错误。FATAL 比 ERROR 高一档，只表示严重程度。
//
// SetRotation 基于 lumberjack 按大小轮转，要求至少配置一种清理策略。
package xlog
