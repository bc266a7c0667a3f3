package xconf

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
)

// Options 是不可变的配置映射。
//
// 包含两类条目：
//   - 命名条目：字符串键，嵌套映射统一存储为 Options
//   - 位置条目：无键条目，按插入顺序保存
//
// 零值是合法的空映射。所有"修改"方法都返回副本，原值不变。
// Get/Items 返回的列表值与内部共享，调用方应视为只读。
type Options struct {
	values map[string]any
	items  []any
}

// NewOptions 返回空的 Options。
func NewOptions() Options {
	return Options{values: map[string]any{}}
}

// OptionsOf 从 map[string]any 构造 Options。
// 嵌套的 map[string]any / map[any]any 递归转换为 Options，列表中的映射同样转换。
func OptionsOf(m map[string]any) Options {
	o := Options{values: make(map[string]any, len(m))}
	for k, v := range m {
		o.values[k] = normalize(v)
	}
	return o
}

// Len 返回条目总数（命名 + 位置）。
func (o Options) Len() int {
	return len(o.values) + len(o.items)
}

// IsEmpty 报告是否没有任何条目。
func (o Options) IsEmpty() bool {
	return o.Len() == 0
}

// Get 返回命名条目的值。
func (o Options) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Sub 返回命名条目中的嵌套映射。
// 键不存在或值不是映射时返回 false。
func (o Options) Sub(key string) (Options, bool) {
	v, ok := o.values[key]
	if !ok {
		return Options{}, false
	}
	sub, ok := v.(Options)
	return sub, ok
}

// Lookup 沿路径逐层查找嵌套值。
func (o Options) Lookup(path ...string) (any, bool) {
	if len(path) == 0 {
		return o, true
	}
	cur := o
	for i, key := range path {
		v, ok := cur.values[key]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		if cur, ok = v.(Options); !ok {
			return nil, false
		}
	}
	return nil, false
}

// Keys 返回排序后的命名键。
func (o Options) Keys() []string {
	return slices.Sorted(maps.Keys(o.values))
}

// Items 返回位置条目的副本。
func (o Options) Items() []any {
	return slices.Clone(o.items)
}

// With 返回设置了 key 的副本。
func (o Options) With(key string, value any) Options {
	values := make(map[string]any, len(o.values)+1)
	maps.Copy(values, o.values)
	values[key] = normalize(value)
	return Options{values: values, items: o.items}
}

// Append 返回追加了位置条目的副本。
func (o Options) Append(items ...any) Options {
	next := make([]any, 0, len(o.items)+len(items))
	next = append(next, o.items...)
	for _, it := range items {
		next = append(next, normalize(it))
	}
	return Options{values: o.values, items: next}
}

// Map 返回命名条目的普通 map 表示，嵌套 Options 递归展开。
// 位置条目不包含在内，见 Items。
func (o Options) Map() map[string]any {
	out := make(map[string]any, len(o.values))
	for k, v := range o.values {
		out[k] = plain(v)
	}
	return out
}

// Equal 报告两个 Options 是否在结构上相等。
func (o Options) Equal(other Options) bool {
	if len(o.values) != len(other.values) || len(o.items) != len(other.items) {
		return false
	}
	for k, v := range o.values {
		ov, ok := other.values[k]
		if !ok || !equalValue(v, ov) {
			return false
		}
	}
	for i := range o.items {
		if !equalValue(o.items[i], other.items[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON 实现 json.Marshaler。
//
// 只有位置条目时编码为数组；否则编码为对象，位置条目以其下标为键，
// 与命名键冲突时命名键优先。对象键按字典序输出，结果可作为规范形式。
func (o Options) MarshalJSON() ([]byte, error) {
	if len(o.values) == 0 && len(o.items) > 0 {
		return json.Marshal(o.items)
	}
	m := make(map[string]any, o.Len())
	for i, it := range o.items {
		m[strconv.Itoa(i)] = it
	}
	maps.Copy(m, o.values)
	return json.Marshal(m)
}

// String 实现 fmt.Stringer，输出规范 JSON。
func (o Options) String() string {
	data, err := o.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<options: %v>", err)
	}
	return string(data)
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// asOptions 将映射类输入转换为 Options，非映射输入返回 false。
func asOptions(v any) (Options, bool) {
	switch m := v.(type) {
	case Options:
		return m, true
	case *Options:
		if m == nil {
			return Options{}, false
		}
		return *m, true
	case map[string]any:
		return OptionsOf(m), true
	case map[any]any:
		return OptionsOf(stringKeys(m)), true
	default:
		return Options{}, false
	}
}

// normalize 将嵌套映射转换为 Options，列表逐元素转换。
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any, map[any]any, *Options:
		o, ok := asOptions(t)
		if !ok {
			return nil
		}
		return o
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// plain 是 normalize 的逆过程。
func plain(v any) any {
	switch t := v.(type) {
	case Options:
		if len(t.values) == 0 && len(t.items) > 0 {
			return plain(t.items)
		}
		return t.Map()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

func stringKeys(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}

func equalValue(a, b any) bool {
	ao, aok := a.(Options)
	bo, bok := b.(Options)
	if aok || bok {
		return aok && bok && ao.Equal(bo)
	}
	as, aok := a.([]any)
	bs, bok := b.([]any)
	if aok && bok {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !equalValue(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
