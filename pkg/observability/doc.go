// Package observability 提供日志相关的子包。
//
// 子包列表：
//   - xtimber: 基于 profile 配置的分级日志门面（核心）
//   - xsink: xtimber 的输出实现（stderr/stdout、文件、邮件、Redis、zap）
//   - xconsole: 通过 HTTP 响应头把日志镜像到浏览器控制台
//   - xlog: 基于 log/slog 的诊断日志，兼作流式 sink 的渲染器
//
// 依赖方向：xlog ← xtimber ← xsink、xconsole。
package observability
