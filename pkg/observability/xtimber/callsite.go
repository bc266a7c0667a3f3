package xtimber

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// callSite 是公开入口处捕获的调用栈，只在需要时解析
type callSite struct {
	pcs [2]uintptr
	n   int
}

// frame 是解析后的一层栈帧
type frame struct {
	function string
	file     string
	line     int
}

// captureSite 捕获调用方的位置。
// skip 从 captureSite 的调用方算起：0 表示调用 captureSite 的函数本身。
//
//go:noinline
func captureSite(skip int) *callSite {
	s := &callSite{}
	// +2: runtime.Callers 与 captureSite 自身
	s.n = runtime.Callers(skip+2, s.pcs[:])
	return s
}

// frames 返回调用点（第一帧）与外层调用者（第二帧，可能缺失）
func (s *callSite) frames() (site frame, outer frame, hasOuter bool) {
	if s == nil || s.n == 0 {
		return frame{}, frame{}, false
	}
	it := runtime.CallersFrames(s.pcs[:s.n])
	f, more := it.Next()
	site = frame{function: f.Function, file: f.File, line: f.Line}
	if !more {
		return site, frame{}, false
	}
	g, _ := it.Next()
	if g.PC == 0 || strings.HasPrefix(g.Function, "runtime.") {
		return site, frame{}, false
	}
	return site, frame{function: g.Function, file: g.File, line: g.Line}, true
}

// location 返回 file:line 形式，用于诊断通知
func (s *callSite) location() string {
	site, _, _ := s.frames()
	if site.file == "" {
		return "unknown"
	}
	return site.file + ":" + strconv.Itoa(site.line)
}

// annotate 在消息后追加调用位置：
//
//	msg in /path/file.go on line #12 called from function "handler" from line #40 of /path/main.go
//
// 外层调用者缺失时只追加第一段。
func (s *callSite) annotate(msg string) string {
	site, outer, ok := s.frames()
	if site.file == "" {
		return msg
	}
	var b strings.Builder
	b.Grow(len(msg) + 96)
	b.WriteString(msg)
	b.WriteString(" in ")
	b.WriteString(site.file)
	b.WriteString(" on line #")
	b.WriteString(strconv.Itoa(site.line))
	if ok {
		b.WriteString(` called from function "`)
		b.WriteString(shortFunc(site.function))
		b.WriteString(`" from line #`)
		b.WriteString(strconv.Itoa(outer.line))
		b.WriteString(" of ")
		b.WriteString(outer.file)
	}
	return b.String()
}

// shortFunc 去掉包路径：github.com/a/b.(*T).M → (*T).M
func shortFunc(name string) string {
	base := filepath.Base(name)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[i+1:]
	}
	return base
}
