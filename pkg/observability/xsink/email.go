package xsink

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// 邮件 sink 默认值
const (
	DefaultSMTPAddr      = "localhost:25"
	DefaultEmailSubject  = "Timber"
	DefaultEmailAttempts = 3
	DefaultEmailDelay    = 200 * time.Millisecond

	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// SendFunc 发送一封邮件，签名与 smtp.SendMail 一致
type SendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// EmailOptions 是 email sink 的选项
type EmailOptions struct {
	// Emails 收件人，接受列表或逗号分隔的字符串，必填
	Emails []string `mapstructure:"emails"`

	// From 发件人，必填
	From string `mapstructure:"from"`

	// Addr SMTP 服务地址 host:port
	Addr string `mapstructure:"addr"`

	// Subject 主题前缀，实际主题为 "<Subject> [<tag>] <LEVEL>"
	Subject string `mapstructure:"subject"`

	// Username / Password 非空时使用 PLAIN 认证
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Attempts 每封邮件的最多尝试次数（含首次）
	Attempts uint `mapstructure:"attempts"`

	// Delay 重试间隔
	Delay time.Duration `mapstructure:"delay"`
}

func defaultEmailOptions() EmailOptions {
	return EmailOptions{
		Addr:     DefaultSMTPAddr,
		Subject:  DefaultEmailSubject,
		Attempts: DefaultEmailAttempts,
		Delay:    DefaultEmailDelay,
	}
}

// Email 把每个事件作为一封纯文本邮件发出。
//
// 发送经过重试与熔断：连续失败后熔断器打开，后续事件立即失败，
// 不再阻塞调用方。
type Email struct {
	cfg     EmailOptions
	send    SendFunc
	auth    smtp.Auth
	host    string
	breaker *gobreaker.CircuitBreaker[struct{}]
	now     func() time.Time
}

var _ xtimber.Sink = (*Email)(nil)

// EmailOption 配置 Email
type EmailOption func(*Email)

// WithSender 替换发送函数，默认 smtp.SendMail
func WithSender(send SendFunc) EmailOption {
	return func(e *Email) {
		if send != nil {
			e.send = send
		}
	}
}

// WithClock 替换时钟，用于 Date 头
func WithClock(now func() time.Time) EmailOption {
	return func(e *Email) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEmail 是 email sink 的工厂
func NewEmail(opts xconf.Options) (xtimber.Sink, error) {
	cfg := defaultEmailOptions()
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	return NewEmailSink(cfg)
}

// NewEmailSink 按已解码的选项创建 Email
func NewEmailSink(cfg EmailOptions, opts ...EmailOption) (*Email, error) {
	cfg.Emails = cleanAddresses(cfg.Emails)
	if len(cfg.Emails) == 0 {
		return nil, fmt.Errorf("%w: emails", ErrMissingOption)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: from", ErrMissingOption)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultSMTPAddr
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}

	host := cfg.Addr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	e := &Email{
		cfg:  cfg,
		send: smtp.SendMail,
		host: host,
		now:  time.Now,
	}
	if cfg.Username != "" {
		e.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	for _, opt := range opts {
		opt(e)
	}

	e.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "xsink.email:" + cfg.Addr,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
	})
	return e, nil
}

// Recipients 返回收件人列表
func (e *Email) Recipients() []string {
	return append([]string(nil), e.cfg.Emails...)
}

// Output 实现 xtimber.Sink
func (e *Email) Output(ctx context.Context, level xtimber.Level, tag, message string, values []xtimber.Value) error {
	msg := e.compose(level, tag, message, values)
	return deliver(ctx, e.breaker, e.cfg.Attempts, e.cfg.Delay, func() error {
		return e.send(e.cfg.Addr, e.auth, e.cfg.From, e.cfg.Emails, msg)
	})
}

// compose 生成 RFC 5322 纯文本邮件
func (e *Email) compose(level xtimber.Level, tag, message string, values []xtimber.Value) []byte {
	subject := e.cfg.Subject
	if tag != "" {
		subject += " [" + tag + "]"
	}
	subject += " " + level.String()

	var b strings.Builder
	writeHeader(&b, "From", e.cfg.From)
	writeHeader(&b, "To", strings.Join(e.cfg.Emails, ", "))
	writeHeader(&b, "Subject", subject)
	writeHeader(&b, "Date", e.now().Format(time.RFC1123Z))
	writeHeader(&b, "Message-ID", "<"+uuid.New().String()+"@"+messageIDHost(e.host)+">")
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")

	b.WriteString("Level: " + level.String() + "\r\n")
	if tag != "" {
		b.WriteString("Tag: " + tag + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(crlf(message))
	b.WriteString("\r\n")
	for _, v := range values {
		b.WriteString("\r\n")
		b.WriteString(crlf(xtimber.PrettyPrint(v)))
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}

func writeHeader(b *strings.Builder, name, value string) {
	// 头部值中的换行会破坏邮件结构
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

func crlf(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\n", "\r\n")
}

func messageIDHost(host string) string {
	if host == "" {
		return "localhost"
	}
	return host
}

func cleanAddresses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, addr := range in {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// deliver 在熔断器保护下按固定间隔重试 fn。熔断错误不重试。
func deliver(ctx context.Context, cb *gobreaker.CircuitBreaker[struct{}], attempts uint, delay time.Duration, fn func() error) error {
	return retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests)
		}),
	).Do(func() error {
		_, err := cb.Execute(func() (struct{}, error) {
			return struct{}{}, fn()
		})
		return err
	})
}
