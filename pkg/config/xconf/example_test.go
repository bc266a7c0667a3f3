package xconf_test

import (
	"fmt"

	"github.com/omeyang/xtimber/pkg/config/xconf"
)

// ExampleMerge 演示深度合并：后者覆盖标量，嵌套映射逐键合并。
func ExampleMerge() {
	base := map[string]any{
		"level":        "ERROR",
		"sink_options": map[string]any{"file": "/tmp/a.log", "compress": true},
	}
	override := map[string]any{
		"level":        "DEBUG",
		"sink_options": map[string]any{"file": "/tmp/b.log"},
	}

	fmt.Println(xconf.Merge(base, override))
	// Output: {"level":"DEBUG","sink_options":{"compress":true,"file":"/tmp/b.log"}}
}

// ExampleStore_Resolve 演示 profile 解析与缺失 profile 的回退。
func ExampleStore_Resolve() {
	doc := []byte(`
DEFAULT:
  level: ERROR
  tag: ""
FILE:
  level: DEBUG
  tag: File
`)
	store, err := xconf.NewStore(xconf.WithBaseBytes(doc, xconf.FormatYAML))
	if err != nil {
		fmt.Println(err)
		return
	}

	file, ok := store.Resolve("FILE")
	fmt.Println(file, ok)

	missing, ok := store.Resolve("NOPE")
	fmt.Println(missing, ok)
	// Output:
	// {"level":"DEBUG","tag":"File"} true
	// {"level":"ERROR","tag":""} false
}
