package xsink

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/omeyang/xtimber/pkg/config/xconf"
)

// decode 把 sink_options 解码到 out。
// 字符串切片接受逗号分隔的写法，时长接受 "5s" 之类的字符串。
func decode(opts xconf.Options, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if err := decoder.Decode(opts.Map()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}
