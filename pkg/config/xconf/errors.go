package xconf

import "errors"

var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	ErrLoadFailed        = errors.New("xconf: load config")
	ErrParseFailed       = errors.New("xconf: parse config")

	// ErrMissingDefault 合并后的文档没有 DEFAULT profile
	ErrMissingDefault = errors.New("xconf: document has no DEFAULT profile")

	// ErrNotWatchable Store 没有任何位于已存在目录中的文件来源
	ErrNotWatchable = errors.New("xconf: store has no file-backed source to watch")
)
