package xconf

import "maps"

// Merge 按从左到右的顺序深度合并任意数量的配置映射。
//
// 规则：
//   - 零个输入返回空 Options
//   - 单个映射输入原样返回；单个非映射输入返回空 Options
//   - 两侧同键且都是映射时递归合并，否则后者替换前者（列表整体替换）
//   - 位置条目依次追加
//
// 接受的映射类型：Options、*Options、map[string]any、map[any]any。
// 其余输入（nil、标量、切片）被跳过。Merge 不修改任何输入。
func Merge(sources ...any) Options {
	var (
		acc     Options
		started bool
	)
	for _, src := range sources {
		o, ok := asOptions(src)
		if !ok {
			continue
		}
		if !started {
			acc, started = o, true
			continue
		}
		acc = mergeTwo(acc, o)
	}
	if !started {
		return NewOptions()
	}
	return acc
}

// mergeTwo 只在映射值上递归，因此对有限输入必然终止。
func mergeTwo(dst, src Options) Options {
	values := make(map[string]any, len(dst.values)+len(src.values))
	maps.Copy(values, dst.values)
	for k, sv := range src.values {
		if dv, ok := values[k]; ok {
			do, dok := dv.(Options)
			so, sok := sv.(Options)
			if dok && sok {
				values[k] = mergeTwo(do, so)
				continue
			}
		}
		values[k] = sv
	}

	var items []any
	if n := len(dst.items) + len(src.items); n > 0 {
		items = make([]any, 0, n)
		items = append(items, dst.items...)
		items = append(items, src.items...)
	}
	return Options{values: values, items: items}
}
