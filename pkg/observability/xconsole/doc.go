// Package xconsole 是 xtimber 的浏览器控制台辅助通道。
//
// 消息以 ChromeLogger 1.0 格式（base64 编码的 JSON）写入
// X-ChromeLogger-Data 响应头，由浏览器扩展展示在开发者控制台中。
// 响应头一旦发出，Console 即处于 Streaming 状态，后续消息被跳过。
//
// 用法：
//
//	reg, err := xtimber.NewRegistry(store,
//		xtimber.WithSinks(xsink.Builtin()),
//		xtimber.WithTransport(xconsole.Lookup),
//	)
//	handler := xconsole.Middleware()(mux)
//
// profile 中 secondary_transport: true 的 logger 会把每条消息的注解文本
// 同时发到请求的 Console。
package xconsole
