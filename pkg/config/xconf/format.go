package xconf

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 是配置文档的编码
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// overlayExts 按顺序探测，第一个存在的 overlay 文件生效
var overlayExts = []string{".yaml", ".yml", ".json"}

var (
	formatsByExt = map[string]Format{".yaml": FormatYAML, ".yml": FormatYAML, ".json": FormatJSON}
	parsers      = map[Format]func() koanf.Parser{
		FormatYAML: func() koanf.Parser { return yaml.Parser() },
		FormatJSON: func() koanf.Parser { return json.Parser() },
	}
)

func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := formatsByExt[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
}

func isValidFormat(format Format) bool {
	_, ok := parsers[format]
	return ok
}

// parse 把一份文档解码为 Options，空文档得到空 Options
func parse(data []byte, format Format, delim string) (Options, error) {
	newParser, ok := parsers[format]
	if !ok {
		return Options{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if len(data) == 0 {
		return NewOptions(), nil
	}
	k := koanf.New(delim)
	if err := k.Load(rawbytes.Provider(data), newParser()); err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return fromDocument(k.Raw()), nil
}

// fromDocument 构造文档的 Options。
//
// 解析器只产出字符串键，整数键（YAML 的 `0: a`）也会变成 "0"。
// 嵌套映射的键全是规范的非负整数时，按数值顺序转为位置条目，
// 合并时追加而不是按键覆盖。顶层始终是 profile 名。
func fromDocument(raw map[string]any) Options {
	o := Options{values: make(map[string]any, len(raw))}
	for k, v := range raw {
		o.values[k] = positional(v)
	}
	return o
}

func positional(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if keys, ok := indexKeys(t); ok {
			items := make([]any, len(keys))
			for i, k := range keys {
				items[i] = positional(t[k])
			}
			return Options{items: items}
		}
		return fromDocument(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = positional(e)
		}
		return out
	default:
		return v
	}
}

// indexKeys 在 m 的键全为规范十进制非负整数时，返回按数值排序的键
func indexKeys(m map[string]any) ([]string, bool) {
	if len(m) == 0 {
		return nil, false
	}
	type index struct {
		key string
		n   int
	}
	idx := make([]index, 0, len(m))
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 || strconv.Itoa(n) != k {
			return nil, false
		}
		idx = append(idx, index{key: k, n: n})
	}
	slices.SortFunc(idx, func(a, b index) int { return cmp.Compare(a.n, b.n) })
	keys := make([]string, len(idx))
	for i, e := range idx {
		keys[i] = e.key
	}
	return keys, true
}
