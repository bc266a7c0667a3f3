package xtimber

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"

	"github.com/omeyang/xtimber/pkg/config/xconf"
)

// Kind 是 Value 的变体标签
type Kind uint8

// Value 的变体
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindMap
	KindSeq
)

var kindNames = [...]string{"null", "bool", "int", "float", "string", "map", "seq"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value 是随日志调用附带的可记录值：null、bool、int、float、string、
// 映射（按键排序）或序列。零值为 null。
type Value struct {
	kind Kind
	num  uint64 // bool / int / float 的位模式
	str  string
	m    []Field
	seq  []Value
}

// Field 是映射中的一个键值对
type Field struct {
	Key   string
	Value Value
}

// Null 返回 null 值
func Null() Value { return Value{} }

// Bool 构造布尔值
func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

// Int 构造整数值
func Int(i int64) Value { return Value{kind: KindInt, num: uint64(i)} }

// Float 构造浮点值
func Float(f float64) Value { return Value{kind: KindFloat, num: math.Float64bits(f)} }

// String 构造字符串值
func String(s string) Value { return Value{kind: KindString, str: s} }

// Map 构造映射值，字段按键排序，重复键保留最后一个
func Map(fields ...Field) Value {
	byKey := make(map[string]Value, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f.Value
	}
	sorted := make([]Field, 0, len(byKey))
	for _, k := range slices.Sorted(maps.Keys(byKey)) {
		sorted = append(sorted, Field{Key: k, Value: byKey[k]})
	}
	return Value{kind: KindMap, m: sorted}
}

// Seq 构造序列值
func Seq(values ...Value) Value {
	return Value{kind: KindSeq, seq: slices.Clone(values)}
}

// F 构造映射字段
func F(key string, v any) Field {
	return Field{Key: key, Value: Any(v)}
}

// 转换时替代无法展开内容的标记
const (
	// RecursionMarker 替代包含自身的映射、切片或指针
	RecursionMarker = "*RECURSION*"

	// DepthMarker 替代超过 MaxDepth 层的嵌套
	DepthMarker = "*MAX DEPTH*"

	// MaxDepth 是 Any 展开容器的最大嵌套层数
	MaxDepth = 32
)

// Any 把任意 Go 值转换为 Value，不会 panic。
//
// 结构体等无法直接识别的类型经 JSON 编码后再转换，编码失败时退化为
// 带类型的错误描述。包含自身的容器渲染为 RecursionMarker；
// nil 指针为 null；Error/String 方法 panic 时渲染为 "<PANIC=...>"。
func Any(v any) Value {
	c := converter{active: make(map[visit]struct{})}
	return c.convert(v, 0)
}

// visit 标识正在展开的容器。切片以首元素地址加长度区分子切片。
type visit struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

// converter 记录当前递归路径上的容器，兄弟之间共享的容器仍会完整展开
type converter struct {
	active map[visit]struct{}
}

func (c *converter) convert(v any, depth int) Value {
	if depth > MaxDepth {
		return String(DepthMarker)
	}
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return uintValue(uint64(t))
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		return uintValue(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case string:
		return String(t)
	case []byte:
		return String(string(t))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		f, _ := t.Float64()
		return Float(f)
	case xconf.Options:
		if t.Len() > 0 && len(t.Keys()) == 0 {
			return c.convert(t.Items(), depth)
		}
		return c.convert(t.Map(), depth)
	case error:
		if isNil(t) {
			return Null()
		}
		return String(safeText(t, t.Error))
	case fmt.Stringer:
		if isNil(t) {
			return Null()
		}
		return String(safeText(t, t.String))
	}
	return c.reflectValue(reflect.ValueOf(v), depth)
}

// enter 把容器压入当前路径，已在路径上时返回 false
func (c *converter) enter(rv reflect.Value, n int) (visit, bool) {
	key := visit{typ: rv.Type(), ptr: rv.Pointer(), n: n}
	if _, ok := c.active[key]; ok {
		return key, false
	}
	c.active[key] = struct{}{}
	return key, true
}

// reflectValue 处理指针、切片、映射，其余类型走 JSON
func (c *converter) reflectValue(rv reflect.Value, depth int) Value {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Null()
		}
		key, ok := c.enter(rv, 0)
		if !ok {
			return String(RecursionMarker)
		}
		defer delete(c.active, key)
		return c.convert(rv.Elem().Interface(), depth+1)
	case reflect.Slice:
		if rv.IsNil() {
			return Null()
		}
		if rv.Len() > 0 {
			key, ok := c.enter(rv, rv.Len())
			if !ok {
				return String(RecursionMarker)
			}
			defer delete(c.active, key)
		}
		return c.seq(rv, depth)
	case reflect.Array:
		return c.seq(rv, depth)
	case reflect.Map:
		if rv.IsNil() {
			return Null()
		}
		key, ok := c.enter(rv, 0)
		if !ok {
			return String(RecursionMarker)
		}
		defer delete(c.active, key)
		fields := make([]Field, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			fields = append(fields, Field{
				Key:   mapKey(iter.Key()),
				Value: c.convert(iter.Value().Interface(), depth+1),
			})
		}
		return Map(fields...)
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return Null()
		}
		return String(rv.Type().String())
	}
	return c.viaJSON(rv.Interface(), depth)
}

func (c *converter) seq(rv reflect.Value, depth int) Value {
	vals := make([]Value, rv.Len())
	for i := range vals {
		vals[i] = c.convert(rv.Index(i).Interface(), depth+1)
	}
	return Value{kind: KindSeq, seq: vals}
}

// viaJSON 转换结构体等类型；MarshalJSON panic 或编码失败时返回描述字符串
func (c *converter) viaJSON(v any, depth int) (out Value) {
	defer func() {
		if r := recover(); r != nil {
			out = String(fmt.Sprintf("<PANIC=%T: %v>", v, r))
		}
	}()
	data, err := json.Marshal(v)
	if err != nil {
		return String(fmt.Sprintf("<%T: %v>", v, err))
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return String(string(data))
	}
	return c.convert(decoded, depth)
}

// mapKey 渲染映射键。键实现的 String 方法可能 panic，同样被隔离。
func mapKey(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	key := k.Interface()
	if s, ok := key.(fmt.Stringer); ok && !isNil(s) {
		return safeText(s, s.String)
	}
	return fmt.Sprintf("%v", key)
}

// isNil 报告接口里装的是否是 nil 指针等可为 nil 的值
func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// safeText 调用 Error/String 方法，panic 时按 fmt 的写法返回 "<PANIC=...>"
func safeText(v any, method func() string) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("<PANIC=%T: %v>", v, r)
		}
	}()
	return method()
}

func uintValue(u uint64) Value {
	if u > math.MaxInt64 {
		return String(strconv.FormatUint(u, 10))
	}
	return Int(int64(u))
}

// Kind 返回变体标签
func (v Value) Kind() Kind { return v.kind }

// IsNull 报告是否为 null
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool 返回布尔值，非 bool 变体返回 false
func (v Value) AsBool() bool { return v.kind == KindBool && v.num == 1 }

// AsInt 返回整数值，非 int 变体返回 0
func (v Value) AsInt() int64 {
	if v.kind != KindInt {
		return 0
	}
	return int64(v.num)
}

// AsFloat 返回浮点值，int 变体会被转换
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindFloat:
		return math.Float64frombits(v.num)
	case KindInt:
		return float64(int64(v.num))
	default:
		return 0
	}
}

// AsString 返回字符串变体的内容，其余变体返回空串
func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.str
}

// Fields 返回映射字段（已排序）的副本
func (v Value) Fields() []Field { return slices.Clone(v.m) }

// Items 返回序列元素的副本
func (v Value) Items() []Value { return slices.Clone(v.seq) }

// Interface 返回普通 Go 表示：nil、bool、int64、float64、string、
// map[string]any 或 []any
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.AsBool()
	case KindInt:
		return v.AsInt()
	case KindFloat:
		return v.AsFloat()
	case KindString:
		return v.str
	case KindMap:
		m := make(map[string]any, len(v.m))
		for _, f := range v.m {
			m[f.Key] = f.Value.Interface()
		}
		return m
	case KindSeq:
		s := make([]any, len(v.seq))
		for i, e := range v.seq {
			s[i] = e.Interface()
		}
		return s
	default:
		return nil
	}
}

// Equal 报告结构是否相等
func (v Value) Equal(other Value) bool {
	return reflect.DeepEqual(v.Interface(), other.Interface()) && v.kind == other.kind
}

// MarshalJSON 实现 json.Marshaler，映射键按字典序输出
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// String 实现 fmt.Stringer，等价于 PrettyPrint
func (v Value) String() string {
	return PrettyPrint(v)
}

// PrettyPrint 渲染值：bool 为 true/false；映射、序列与 null 为缩进 JSON；
// 其余标量为自然字符串形式
func PrettyPrint(v Value) string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case KindString:
		return v.str
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("<marshal error: %v>", err)
		}
		return string(data)
	}
}

// PrettyPrintAll 依次渲染多个值
func PrettyPrintAll(values []Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = PrettyPrint(v)
	}
	return out
}
