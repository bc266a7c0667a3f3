package xconf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 是重载防抖的默认时长
const DefaultDebounce = 100 * time.Millisecond

// ErrWatcherClosed 表示 Watcher 已关闭或已运行结束
var ErrWatcherClosed = errors.New("xconf: watcher is closed")

// ReloadFunc 在每次重载之后调用，err 为重载或监视本身的错误
type ReloadFunc func(s *Store, err error)

// WatchOption 配置 Watcher
type WatchOption func(*Watcher)

// WithDebounce 合并 d 时间内的多次变更为一次重载
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher 监视 Store 的文件来源，变更后重载 Store。
//
// 已构建的 logger 保持原配置，重载只影响之后构建的 logger。
type Watcher struct {
	store    *Store
	fs       *fsnotify.Watcher
	targets  map[string]struct{}
	debounce time.Duration
	close    func() error
}

// Watch 为 Store 创建 Watcher。
//
// 监视的是基础文件与 overlay 候选文件所在的目录：编辑器保存时常常先删后建，
// 启动时尚不存在的 overlay 文件之后被创建也会触发重载。
// 没有任何存在的目录时返回 ErrNotWatchable。
func (s *Store) Watch(opts ...WatchOption) (*Watcher, error) {
	w := &Watcher{store: s, targets: make(map[string]struct{}), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]struct{})
	for _, path := range s.watchTargets() {
		dir := filepath.Dir(path)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		w.targets[path] = struct{}{}
		dirs[dir] = struct{}{}
	}
	if len(dirs) == 0 {
		return nil, ErrNotWatchable
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	for dir := range dirs {
		if err := fs.Add(dir); err != nil {
			return nil, errors.Join(fmt.Errorf("xconf: watch %s: %w", dir, err), fs.Close())
		}
	}
	w.fs = fs
	w.close = sync.OnceValue(fs.Close)
	return w, nil
}

// Targets 返回被监视的文件路径（已排序）
func (w *Watcher) Targets() []string {
	paths := make([]string, 0, len(w.targets))
	for p := range w.targets {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Run 阻塞直到 ctx 结束，期间把文件变更转换为 Store 重载。
//
// 重载与 onReload 都在 Run 所在的 goroutine 上执行，onReload 可以为 nil。
// Run 返回时关闭底层 fsnotify，挂起的重载被丢弃。
func (w *Watcher) Run(ctx context.Context, onReload ReloadFunc) error {
	defer func() { _ = w.close() }() //nolint:errcheck // 退出路径

	notify := func(err error) {
		if onReload != nil {
			onReload(w.store, err)
		}
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if w.relevant(ev) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			notify(fmt.Errorf("xconf: watch: %w", err))

		case <-timer.C:
			notify(w.store.Reload())
		}
	}
}

// Close 释放 Watcher，可重复调用；Run 返回时会自动调用
func (w *Watcher) Close() error {
	return w.close()
}

// relevant 报告事件是否落在目标文件上且可能改变其内容
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if _, ok := w.targets[filepath.Clean(ev.Name)]; !ok {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}
