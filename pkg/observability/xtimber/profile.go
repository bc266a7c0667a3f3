package xtimber

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/omeyang/xtimber/pkg/config/xconf"
)

// 配置键名
const (
	KeyLevel              = "level"
	KeyTag                = "tag"
	KeyBacktrace          = "backtrace"
	KeySecondaryTransport = "secondary_transport"
	KeySink               = "sink"
	KeySinkOptions        = "sink_options"
)

// Profile 是解码后的有效配置
type Profile struct {
	// Level 最低输出级别
	Level Level `mapstructure:"level"`

	// Tag 附加到每个事件上的标签
	Tag string `mapstructure:"tag"`

	// Backtrace 为 true 时在消息后追加调用位置
	Backtrace bool `mapstructure:"backtrace"`

	// SecondaryTransport 为 true 时同时镜像到辅助通道
	SecondaryTransport bool `mapstructure:"secondary_transport"`

	// Sink 输出实现的标识，空串表示没有 sink
	Sink string `mapstructure:"sink"`

	// SinkOptions 原样传给 sink 工厂
	SinkOptions xconf.Options `mapstructure:"-"`
}

// BuiltinProfile 在配置值无法解码时使用
func BuiltinProfile() Profile {
	return Profile{Level: LevelError, Sink: "stderr"}
}

// DecodeProfile 把配置映射解码为 Profile。
//
// 缺失的键沿用 BuiltinProfile 的值；级别支持名字或数值；布尔值允许弱类型
// （如 "true"、1）。任何解码失败都返回 BuiltinProfile 与 ErrInvalidProfile。
func DecodeProfile(opts xconf.Options) (Profile, error) {
	p := BuiltinProfile()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return BuiltinProfile(), fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	raw := opts.Map()
	delete(raw, KeySinkOptions)
	if err := decoder.Decode(raw); err != nil {
		return BuiltinProfile(), fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	if v, ok := opts.Get(KeySinkOptions); ok && v != nil {
		sub, ok := opts.Sub(KeySinkOptions)
		if !ok {
			return BuiltinProfile(), fmt.Errorf("%w: %s must be a mapping, got %T", ErrInvalidProfile, KeySinkOptions, v)
		}
		p.SinkOptions = sub
	}
	return p, nil
}

// Options 把 Profile 编码回配置映射
func (p Profile) Options() xconf.Options {
	o := xconf.OptionsOf(map[string]any{
		KeyLevel:              p.Level.String(),
		KeyTag:                p.Tag,
		KeyBacktrace:          p.Backtrace,
		KeySecondaryTransport: p.SecondaryTransport,
		KeySink:               p.Sink,
	})
	if !p.SinkOptions.IsEmpty() {
		o = o.With(KeySinkOptions, p.SinkOptions)
	}
	return o
}
