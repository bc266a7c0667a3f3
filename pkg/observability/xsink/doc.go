// Package xsink 提供 xtimber 的内置 sink。
//
// Builtin 返回按名字索引的工厂表，直接交给 xtimber.WithSinks：
//
//	reg, err := xtimber.NewRegistry(store, xtimber.WithSinks(xsink.Builtin()))
//
// 内置 sink 与其 sink_options：
//
//   - stderr / stdout：slog 记录，format 为 text 或 json
//   - file：按大小轮转的日志文件（lumberjack），file 必填，
//     另有 max_size_mb、max_backups、max_age_days、compress、local_time、format
//   - email：每个事件一封纯文本邮件，emails（列表或逗号分隔）与 from 必填，
//     另有 addr、subject、username、password、attempts、delay
//   - redis：以 JSON RPUSH 到列表，addr、key、db、password、max_len、timeout
//   - zap：zapcore JSON 行，output 为 stderr/stdout，或 file 加轮转参数
//   - discard：丢弃
//
// email 与 redis 的投递经过 retry-go 重试与 gobreaker 熔断，
// 后端不可用时快速失败，错误经 xtimber 返回给 Log 的调用方。
package xsink
