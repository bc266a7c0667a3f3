package xsink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// Redis sink 默认值
const (
	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisKey      = "timber:events"
	DefaultRedisAttempts = 2
	DefaultRedisDelay    = 50 * time.Millisecond
	DefaultRedisTimeout  = time.Second
)

// RedisOptions 是 redis sink 的选项
type RedisOptions struct {
	Addr     string        `mapstructure:"addr"`
	Key      string        `mapstructure:"key"`
	DB       int           `mapstructure:"db"`
	Password string        `mapstructure:"password"`
	Attempts uint          `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`

	// Timeout 单次 RPUSH 的超时
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxLen 大于 0 时用 LTRIM 只保留最新的 MaxLen 条
	MaxLen int64 `mapstructure:"max_len"`
}

func defaultRedisOptions() RedisOptions {
	return RedisOptions{
		Addr:     DefaultRedisAddr,
		Key:      DefaultRedisKey,
		Attempts: DefaultRedisAttempts,
		Delay:    DefaultRedisDelay,
		Timeout:  DefaultRedisTimeout,
	}
}

// Event 是写入 Redis 列表的 JSON 结构
type Event struct {
	ID      string          `json:"id"`
	Time    time.Time       `json:"time"`
	Level   string          `json:"level"`
	Tag     string          `json:"tag,omitempty"`
	Message string          `json:"message"`
	Values  []xtimber.Value `json:"values,omitempty"`
}

// Redis 把事件以 JSON 追加到一个 Redis 列表（RPUSH），供下游消费。
type Redis struct {
	client  redis.UniversalClient
	owned   bool
	cfg     RedisOptions
	breaker *gobreaker.CircuitBreaker[struct{}]
	now     func() time.Time
	closed  atomic.Bool
}

var _ xtimber.Sink = (*Redis)(nil)

// NewRedis 是 redis sink 的工厂，Close 时关闭自己创建的客户端
func NewRedis(opts xconf.Options) (xtimber.Sink, error) {
	cfg := defaultRedisOptions()
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		Password:     cfg.Password,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	s, err := NewRedisSink(client, cfg)
	if err != nil {
		_ = client.Close() //nolint:errcheck // 已有构造错误
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewRedisSink 用已有客户端创建 Redis sink，Close 不会关闭该客户端
func NewRedisSink(client redis.UniversalClient, cfg RedisOptions) (*Redis, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("%w: key", ErrMissingOption)
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRedisTimeout
	}
	return &Redis{
		client: client,
		cfg:    cfg,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "xsink.redis:" + cfg.Key,
			MaxRequests: 1,
			Timeout:     breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
		}),
		now: time.Now,
	}, nil
}

// Key 返回目标列表名
func (s *Redis) Key() string { return s.cfg.Key }

// Output 实现 xtimber.Sink
func (s *Redis) Output(ctx context.Context, level xtimber.Level, tag, message string, values []xtimber.Value) error {
	if s.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(Event{
		ID:      uuid.New().String(),
		Time:    s.now().UTC(),
		Level:   level.String(),
		Tag:     tag,
		Message: message,
		Values:  values,
	})
	if err != nil {
		return fmt.Errorf("xsink: encode event: %w", err)
	}

	return deliver(ctx, s.breaker, s.cfg.Attempts, s.cfg.Delay, func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		return s.push(callCtx, data)
	})
}

func (s *Redis) push(ctx context.Context, data []byte) error {
	if s.cfg.MaxLen <= 0 {
		return s.client.RPush(ctx, s.cfg.Key, data).Err()
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.cfg.Key, data)
		p.LTrim(ctx, s.cfg.Key, -s.cfg.MaxLen, -1)
		return nil
	})
	return err
}

// Close 关闭 sink；自建的客户端一并关闭。可重复调用。
func (s *Redis) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.owned {
		return s.client.Close()
	}
	return nil
}
