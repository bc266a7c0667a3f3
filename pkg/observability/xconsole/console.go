package xconsole

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// =============================================================================
// 常量与错误
// =============================================================================

// ChromeLogger 协议常量
const (
	// HeaderName 承载日志的响应头
	HeaderName = "X-ChromeLogger-Data"

	// ProtocolVersion 协议版本
	ProtocolVersion = "1.0"

	// DefaultMaxHeaderBytes 编码后响应头的默认上限。
	// 多数代理与浏览器对单个头有 256KB 左右的限制。
	DefaultMaxHeaderBytes = 240 << 10
)

var (
	// ErrStreaming 响应头已发送，无法再追加
	ErrStreaming = errors.New("xconsole: response already streaming")

	// ErrHeaderTooLarge 追加后响应头会超过上限，该行被丢弃
	ErrHeaderTooLarge = errors.New("xconsole: header size limit exceeded")

	// ErrNilHeader 未提供响应头
	ErrNilHeader = errors.New("xconsole: nil header")
)

var columns = []string{"log", "backtrace", "type"}

// 头部 JSON 的固定前后缀，行按 JSON 数组元素拼在中间
const (
	payloadPrefix = `{"version":"` + ProtocolVersion + `","columns":["log","backtrace","type"],"rows":[`
	payloadSuffix = `]}`
)

// =============================================================================
// Console
// =============================================================================

// Console 把消息累积为 ChromeLogger 行，并在每次 Emit 后重写响应头。
//
// 并发安全。已编码的行被缓存，每次 Emit 只编码新的一行。
// 响应开始输出（markStarted）与 Emit 在同一把锁下互斥：
// 响应头被发出之后不会再有行写入 header。
type Console struct {
	header   http.Header
	maxBytes int
	started  atomic.Bool

	mu      sync.Mutex
	body    []byte // 逗号分隔的已编码行
	rows    int
	dropped int
}

var _ xtimber.Transport = (*Console)(nil)

// row 是 [log, backtrace, type] 三列
type row [3]any

// Option 配置 Console 与 Middleware
type Option func(*config)

type config struct {
	maxBytes int
}

func defaultConfig() *config {
	return &config{maxBytes: DefaultMaxHeaderBytes}
}

// WithMaxHeaderBytes 设置编码后响应头的上限，<= 0 时忽略
func WithMaxHeaderBytes(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// New 创建写入 header 的 Console
func New(header http.Header, opts ...Option) (*Console, error) {
	if header == nil {
		return nil, ErrNilHeader
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Console{header: header, maxBytes: cfg.maxBytes}, nil
}

// Emit 实现 xtimber.Transport
func (c *Console) Emit(severity xtimber.Severity, message string) error {
	if c.Streaming() {
		return ErrStreaming
	}
	encoded, err := json.Marshal(row{[]string{message}, nil, rowType(severity)})
	if err != nil {
		return fmt.Errorf("xconsole: encode row: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 锁内复查，与 markStarted 互斥
	if c.started.Load() {
		return ErrStreaming
	}
	n := len(payloadPrefix) + len(c.body) + len(encoded) + len(payloadSuffix)
	if c.rows > 0 {
		n++
	}
	if size := base64.StdEncoding.EncodedLen(n); size > c.maxBytes {
		c.dropped++
		return fmt.Errorf("%w: %d > %d bytes", ErrHeaderTooLarge, size, c.maxBytes)
	}

	if c.rows > 0 {
		c.body = append(c.body, ',')
	}
	c.body = append(c.body, encoded...)
	c.rows++
	c.header.Set(HeaderName, c.value(n))
	return nil
}

// value 返回当前行集合的头部值，n 为 JSON 长度
func (c *Console) value(n int) string {
	data := make([]byte, 0, n)
	data = append(data, payloadPrefix...)
	data = append(data, c.body...)
	data = append(data, payloadSuffix...)
	return base64.StdEncoding.EncodeToString(data)
}

// Streaming 实现 xtimber.Transport
func (c *Console) Streaming() bool {
	return c.started.Load()
}

// Len 返回已写入响应头的行数
func (c *Console) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Dropped 返回因超过上限被丢弃的行数
func (c *Console) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// markStarted 标记响应已开始输出。
// 必须在响应头发出之前调用；返回时进行中的 Emit 都已完成。
func (c *Console) markStarted() {
	if c.started.Load() {
		return
	}
	c.mu.Lock()
	c.started.Store(true)
	c.mu.Unlock()
}

// rowType 映射严重程度到 ChromeLogger 的 type 列，普通日志为空串
func rowType(s xtimber.Severity) string {
	switch s {
	case xtimber.SeverityWarn:
		return "warn"
	case xtimber.SeverityError:
		return "error"
	default:
		return ""
	}
}

// Decode 解析 X-ChromeLogger-Data 头的值，返回每行的消息与 type 列
func Decode(value string) ([]Entry, error) {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("xconsole: decode header: %w", err)
	}
	var p struct {
		Version string            `json:"version"`
		Rows    []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("xconsole: decode header: %w", err)
	}

	entries := make([]Entry, 0, len(p.Rows))
	for _, raw := range p.Rows {
		var cols []json.RawMessage
		if err := json.Unmarshal(raw, &cols); err != nil || len(cols) != len(columns) {
			return nil, fmt.Errorf("xconsole: decode header: malformed row %s", raw)
		}
		var e Entry
		var logs []string
		if err := json.Unmarshal(cols[0], &logs); err != nil {
			return nil, fmt.Errorf("xconsole: decode header: %w", err)
		}
		if len(logs) > 0 {
			e.Message = logs[0]
		}
		if err := json.Unmarshal(cols[2], &e.Type); err != nil {
			return nil, fmt.Errorf("xconsole: decode header: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Entry 是解码后的一行
type Entry struct {
	Message string
	Type    string
}

// =============================================================================
// Context
// =============================================================================

type contextKey string

const keyConsole = contextKey("xconsole:console")

// WithConsole 把 Console 放入 context
func WithConsole(ctx context.Context, c *Console) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keyConsole, c)
}

// FromContext 取出 Console
func FromContext(ctx context.Context) (*Console, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(keyConsole).(*Console)
	return c, ok && c != nil
}

// Lookup 是 xtimber.TransportLookup，交给 xtimber.WithTransport 使用
func Lookup(ctx context.Context) (xtimber.Transport, bool) {
	c, ok := FromContext(ctx)
	if !ok {
		return nil, false
	}
	return c, true
}
