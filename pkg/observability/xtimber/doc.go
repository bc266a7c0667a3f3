// Package xtimber 提供按 profile 配置的分级日志门面。
//
// # 概述
//
// 调用方通过一组 token 向 Registry 请求 Logger：
//
//	reg, _ := xtimber.NewRegistry(store, xtimber.WithSinks(xsink.Builtin()))
//	log := reg.Instance(xtimber.Named("FILE"), xtimber.Named("EMAIL"))
//	_ = log.Error(ctx, "payment failed", order)
//
// 第一个 token 决定主配置：profile 名在 xconf.Store 中解析（合并在 DEFAULT 之上），
// 内联覆盖映射（Override）直接合并在 DEFAULT 上。之后的覆盖映射继续合并到主配置，
// 之后的 profile 名各自构造一个子 logger，调用会扇出给它们。
//
// # 一次调用的流程
//
//  1. 过滤：级别低于 profile 阈值或消息为空时直接返回，子 logger 也不会收到
//  2. 注解：开启 backtrace 时在消息后追加调用位置
//  3. 主投递：交给 Sink；Sink 的错误返回给调用方并中止后续步骤。
//     没有 Sink 时写到兜底通道，并附一条配置问题通知
//  4. 辅助投递：开启 secondary_transport 时经 TransportLookup 从 ctx 取出通道镜像一份，
//     失败只产生通知
//  5. 扇出：每个子 logger 收到未注解的原始消息，按自己的阈值过滤
//
// # 降级而非失败
//
// 未知的 profile、无法解码的配置值、未注册的 sink 名、失败的 sink 工厂都不会让构造失败：
// Logger 退化为 DEFAULT 配置或无 sink 模式，并在兜底通道（默认 stderr）写一行
// 带 reason 与 caller 的通知，同时累加 xtimber.misconfigurations 指标。
//
// # 缓存
//
// Registry.Instance 以 token 序列的规范化 Key 缓存 Logger：相同序列返回同一实例，
// 顺序不同视为不同序列。Logger 构造后配置不可变；Store 重载只影响之后新构造的 Logger。
//
// # 指标
//
// xtimber.events 按 level、tag、outcome（delivered/filtered/fallback/failed）计数，
// xtimber.misconfigurations 按 reason 计数。通过 WithMeterProvider 注入 MeterProvider。
package xtimber
