package xsink

import (
	"context"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// 内置 sink 名，即 profile 中 sink 字段的取值
const (
	NameStderr  = "stderr"
	NameStdout  = "stdout"
	NameFile    = "file"
	NameEmail   = "email"
	NameRedis   = "redis"
	NameZap     = "zap"
	NameDiscard = "discard"
)

// Builtin 返回全部内置 sink 工厂，每次调用返回新 map
func Builtin() map[string]xtimber.SinkFactory {
	return map[string]xtimber.SinkFactory{
		NameStderr:  NewStderr,
		NameStdout:  NewStdout,
		NameFile:    NewFile,
		NameEmail:   NewEmail,
		NameRedis:   NewRedis,
		NameZap:     NewZap,
		NameDiscard: NewDiscard,
	}
}

// NewDiscard 是 discard sink 的工厂：丢弃所有事件
func NewDiscard(xconf.Options) (xtimber.Sink, error) {
	return xtimber.SinkFunc(func(context.Context, xtimber.Level, string, string, []xtimber.Value) error {
		return nil
	}), nil
}
