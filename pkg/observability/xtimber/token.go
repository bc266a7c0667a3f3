package xtimber

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/omeyang/xtimber/pkg/config/xconf"
)

type tokenKind uint8

const (
	tokenDefault tokenKind = iota
	tokenNamed
	tokenOverride
)

// Token 是构造请求中的一个元素：profile 名、内联覆盖映射，或空 token（DEFAULT）。
//
// 第一个 token 决定主配置；之后的 profile 名各自构造一个子 logger，
// 之后的覆盖映射继续合并到主配置上。
type Token struct {
	kind     tokenKind
	name     string
	override xconf.Options
}

// Default 是空 token，解析为 DEFAULT profile
var Default = Token{}

// Named 按名字引用 profile。空名等价于 Default。
func Named(name string) Token {
	if name == "" || name == xconf.DefaultProfile {
		return Default
	}
	return Token{kind: tokenNamed, name: name}
}

// Override 构造内联覆盖 token，直接合并到当前配置上，不经过 profile 查找
func Override(m map[string]any) Token {
	return OverrideOptions(xconf.OptionsOf(m))
}

// OverrideOptions 与 Override 相同，接收已构造好的 Options
func OverrideOptions(o xconf.Options) Token {
	return Token{kind: tokenOverride, override: o}
}

// IsDefault 报告是否为空 token
func (t Token) IsDefault() bool { return t.kind == tokenDefault }

// IsOverride 报告是否为覆盖映射
func (t Token) IsOverride() bool { return t.kind == tokenOverride }

// Name 返回 profile 名，非命名 token 返回空串
func (t Token) Name() string { return t.name }

// Overrides 返回覆盖映射，非覆盖 token 返回空 Options
func (t Token) Overrides() xconf.Options { return t.override }

// String 返回可读形式
func (t Token) String() string {
	return t.element().String()
}

func (t Token) element() keyElem {
	switch t.kind {
	case tokenNamed:
		return keyElem{kind: tokenNamed, text: t.name}
	case tokenOverride:
		return keyElem{kind: tokenOverride, text: canonicalText(t.override)}
	default:
		return keyElem{kind: tokenDefault}
	}
}

// =============================================================================
// Key
// =============================================================================

// canonicalText 把覆盖映射写成确定的文本：键排序，不同内容得到不同文本。
//
// 形式与紧凑 JSON 一致；JSON 无法表示的值（NaN、±Inf、任意 Go 类型）
// 也有各自的写法，因此不会出现编码失败后多个映射共用一个文本。
func canonicalText(o xconf.Options) string {
	var b strings.Builder
	writeCanonical(&b, o)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case xconf.Options:
		writeOptions(b, t)
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	case string:
		b.WriteString(strconv.Quote(t))
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case uint64:
		b.WriteString(strconv.FormatUint(t, 10))
	case float64:
		writeFloat(b, t)
	case float32:
		writeFloat(b, float64(t))
	default:
		// 类型名参与文本，int8(1) 与 "1" 等不会相撞
		fmt.Fprintf(b, "%T(%#v)", t, t)
	}
}

// writeOptions 写映射：只有位置条目时写成数组，
// 否则写成对象，位置条目以 #下标 为键，与命名键不冲突
func writeOptions(b *strings.Builder, o xconf.Options) {
	keys := o.Keys()
	items := o.Items()
	if len(keys) == 0 && len(items) > 0 {
		writeCanonical(b, items)
		return
	}
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		v, _ := o.Get(k)
		writeCanonical(b, v)
	}
	for i, it := range items {
		if i > 0 || len(keys) > 0 {
			b.WriteByte(',')
		}
		b.WriteString("#" + strconv.Itoa(i) + ":")
		writeCanonical(b, it)
	}
	b.WriteByte('}')
}

// writeFloat 写浮点数，NaN 与 ±Inf 保留各自的名字
func writeFloat(b *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		b.WriteString("NaN")
	case math.IsInf(f, 1):
		b.WriteString("+Inf")
	case math.IsInf(f, -1):
		b.WriteString("-Inf")
	default:
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

// keyElem 是 Key 的一个元素。kind 参与比较，
// 因此名为 `{}` 的 profile 与空覆盖映射不会冲突。
type keyElem struct {
	kind tokenKind
	text string
}

func (e keyElem) String() string {
	switch e.kind {
	case tokenNamed:
		return strconv.Quote(e.text)
	case tokenOverride:
		return e.text
	default:
		return "DEFAULT"
	}
}

// Key 是 token 序列的规范化、保序复合键
type Key struct {
	elems []keyElem
}

// KeyOf 计算 token 序列的 Key
func KeyOf(tokens ...Token) Key {
	elems := make([]keyElem, len(tokens))
	for i, t := range tokens {
		elems[i] = t.element()
	}
	return Key{elems: elems}
}

// Len 返回元素个数
func (k Key) Len() int { return len(k.elems) }

// Equal 报告两个 Key 是否逐元素相等
func (k Key) Equal(other Key) bool {
	if len(k.elems) != len(other.elems) {
		return false
	}
	for i := range k.elems {
		if k.elems[i] != other.elems[i] {
			return false
		}
	}
	return true
}

// String 返回可读形式，如 ["FILE" {"level":"DEBUG"}]
func (k Key) String() string {
	parts := make([]string, len(k.elems))
	for i, e := range k.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// keyNode 是按 Key 元素逐层索引的前缀树节点
type keyNode struct {
	children map[keyElem]*keyNode
	logger   *Logger
}

func (n *keyNode) lookup(k Key) *Logger {
	cur := n
	for _, e := range k.elems {
		next, ok := cur.children[e]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur.logger
}

func (n *keyNode) store(k Key, l *Logger) {
	cur := n
	for _, e := range k.elems {
		if cur.children == nil {
			cur.children = make(map[keyElem]*keyNode)
		}
		next, ok := cur.children[e]
		if !ok {
			next = &keyNode{}
			cur.children[e] = next
		}
		cur = next
	}
	cur.logger = l
}
