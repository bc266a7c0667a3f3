package xtimber

import "errors"

// 构造与投递相关错误。
var (
	// ErrNilStore 表示 NewRegistry 没有拿到配置 Store。
	ErrNilStore = errors.New("xtimber: nil config store")

	// ErrEmptySinkName 表示注册 sink 时名字为空。
	ErrEmptySinkName = errors.New("xtimber: empty sink name")

	// ErrNilSinkFactory 表示注册的 sink 工厂为 nil。
	ErrNilSinkFactory = errors.New("xtimber: nil sink factory")

	// ErrDuplicateSink 表示同名 sink 被重复注册。
	ErrDuplicateSink = errors.New("xtimber: duplicate sink")

	// ErrSinkOutput 包装 Sink.Output 返回的错误。
	ErrSinkOutput = errors.New("xtimber: sink output failed")

	// ErrInvalidLevel 表示无法解析的级别。
	ErrInvalidLevel = errors.New("xtimber: invalid level")

	// ErrInvalidProfile 表示 profile 中的值无法解码。
	ErrInvalidProfile = errors.New("xtimber: invalid profile")

	// ErrRegistryClosed 表示 Registry 已关闭。
	ErrRegistryClosed = errors.New("xtimber: registry is closed")
)
