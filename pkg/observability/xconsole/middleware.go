package xconsole

import (
	"net/http"
)

// Middleware 返回 HTTP 中间件：为每个请求创建 Console 并放入 r.Context()，
// 同时包装 ResponseWriter，在响应头发出时把 Console 标记为 Streaming。
//
// 示例:
//
//	reg, _ := xtimber.NewRegistry(store, xtimber.WithTransport(xconsole.Lookup))
//	mux := http.NewServeMux()
//	http.ListenAndServe(addr, xconsole.Middleware()(mux))
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// w.Header() 非 nil，New 不会失败
			c, _ := New(w.Header(), opts...) //nolint:errcheck // 见上
			rw := &responseWriter{ResponseWriter: w, console: c}
			next.ServeHTTP(rw, r.WithContext(WithConsole(r.Context(), c)))
		})
	}
}

// responseWriter 记录响应是否已开始
type responseWriter struct {
	http.ResponseWriter
	console *Console
}

func (w *responseWriter) WriteHeader(code int) {
	w.console.markStarted()
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	w.console.markStarted()
	return w.ResponseWriter.Write(p)
}

// Flush 实现 http.Flusher
func (w *responseWriter) Flush() {
	w.console.markStarted()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap 供 http.ResponseController 访问底层 ResponseWriter
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
