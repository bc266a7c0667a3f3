package xconf

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// =============================================================================
// 常量
// =============================================================================

const (
	// DefaultProfile 是每个文档必须包含的基础 profile 名。
	DefaultProfile = "DEFAULT"

	// EnvEnvironment 选择 overlay 的环境名变量。
	EnvEnvironment = "ENVIRONMENT"

	// EnvConfigsDir 存放 overlay 文件的目录变量。
	EnvConfigsDir = "TIMBER_CONFIGS"

	// overlayPrefix overlay 文件名前缀，完整文件名为 timber.<env>.<ext>。
	overlayPrefix = "timber."
)

//go:embed defaults.yaml
var defaultDocument []byte

// =============================================================================
// 选项
// =============================================================================

// StoreOption 定义 Store 配置选项函数类型。
type StoreOption func(*storeOptions)

type storeOptions struct {
	delim      string
	baseFile   string
	baseData   []byte
	baseFormat Format
	env        string
	dir        string
}

func defaultStoreOptions() *storeOptions {
	return &storeOptions{
		delim:      ".",
		baseData:   defaultDocument,
		baseFormat: FormatYAML,
	}
}

// WithBaseFile 从文件加载基础文档，格式由扩展名决定。
func WithBaseFile(path string) StoreOption {
	return func(o *storeOptions) {
		o.baseFile = path
		o.baseData = nil
		o.baseFormat = ""
	}
}

// WithBaseBytes 从字节数据加载基础文档。
func WithBaseBytes(data []byte, format Format) StoreOption {
	return func(o *storeOptions) {
		o.baseFile = ""
		o.baseData = data
		o.baseFormat = format
	}
}

// WithOverlay 显式指定环境名和 overlay 目录。
// 任一为空时不加载 overlay。
func WithOverlay(env, dir string) StoreOption {
	return func(o *storeOptions) {
		o.env = env
		o.dir = dir
	}
}

// WithEnv 从 ENVIRONMENT 和 TIMBER_CONFIGS 读取 overlay 选择。
func WithEnv() StoreOption {
	return func(o *storeOptions) {
		o.env = os.Getenv(EnvEnvironment)
		o.dir = os.Getenv(EnvConfigsDir)
	}
}

// WithDelim 设置 koanf 键分隔符，默认为 "."。
func WithDelim(delim string) StoreOption {
	return func(o *storeOptions) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// =============================================================================
// Store
// =============================================================================

// Store 持有合并后的配置文档并解析 profile。
type Store struct {
	opts *storeOptions

	mu      sync.RWMutex
	doc     Options
	overlay string // 最近一次加载实际使用的 overlay 路径
}

// NewStore 加载基础文档与可选的环境 overlay。
//
// 文档只在此处（以及 Reload）读取一次，之后的 Resolve 都使用缓存。
func NewStore(opts ...StoreOption) (*Store, error) {
	options := defaultStoreOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.baseFile == "" && !isValidFormat(options.baseFormat) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, options.baseFormat)
	}

	s := &Store{opts: options}
	doc, overlay, err := s.load()
	if err != nil {
		return nil, err
	}
	s.doc, s.overlay = doc, overlay
	return s, nil
}

// Resolve 返回 name 对应的有效配置：DEFAULT 与该 profile 的深度合并。
//
// 名字为空或为 DEFAULT 时返回 (DEFAULT, true)。
// profile 不存在（或不是映射）时返回 (DEFAULT, false)，调用方应报告配置错误，
// 但返回值总是可用的。
func (s *Store) Resolve(name string) (Options, bool) {
	doc := s.Document()
	def, _ := doc.Sub(DefaultProfile)
	if name == "" || name == DefaultProfile {
		return def, true
	}
	p, ok := doc.Sub(name)
	if !ok {
		return def, false
	}
	return Merge(def, p), true
}

// Default 返回 DEFAULT profile。
func (s *Store) Default() Options {
	def, _ := s.Document().Sub(DefaultProfile)
	return def
}

// Profiles 返回文档中所有映射型 profile 的名字（已排序）。
func (s *Store) Profiles() []string {
	doc := s.Document()
	names := make([]string, 0, doc.Len())
	for _, k := range doc.Keys() {
		if _, ok := doc.Sub(k); ok {
			names = append(names, k)
		}
	}
	return names
}

// Document 返回当前合并后的完整文档。
func (s *Store) Document() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// OverlayPath 返回最近一次加载使用的 overlay 文件路径，未使用时为空。
func (s *Store) OverlayPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlay
}

// Environment 返回 overlay 的环境名与目录。
func (s *Store) Environment() (env, dir string) {
	return s.opts.env, s.opts.dir
}

// Reload 重新读取全部来源并原子替换文档。
// 失败时保留旧文档并返回错误。
func (s *Store) Reload() error {
	doc, overlay, err := s.load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.doc, s.overlay = doc, overlay
	s.mu.Unlock()
	return nil
}

// =============================================================================
// 内部辅助函数
// =============================================================================

func (s *Store) load() (Options, string, error) {
	base, err := s.loadBase()
	if err != nil {
		return Options{}, "", err
	}

	doc := base
	overlayPath, found, err := s.findOverlay()
	if err != nil {
		return Options{}, "", err
	}
	if found {
		overlay, err := loadFile(overlayPath, s.opts.delim)
		if err != nil {
			return Options{}, "", err
		}
		doc = Merge(base, overlay)
	} else {
		overlayPath = ""
	}

	if _, ok := doc.Sub(DefaultProfile); !ok {
		return Options{}, "", ErrMissingDefault
	}
	return doc, overlayPath, nil
}

func (s *Store) loadBase() (Options, error) {
	if s.opts.baseFile != "" {
		return loadFile(s.opts.baseFile, s.opts.delim)
	}
	return parse(s.opts.baseData, s.opts.baseFormat, s.opts.delim)
}

// findOverlay 按扩展名顺序探测 overlay 文件。
func (s *Store) findOverlay() (string, bool, error) {
	for _, path := range s.overlayCandidates() {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, true, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
	}
	return "", false, nil
}

// overlayCandidates 返回所有可能的 overlay 路径，未配置时为空。
func (s *Store) overlayCandidates() []string {
	env, dir := strings.TrimSpace(s.opts.env), strings.TrimSpace(s.opts.dir)
	if env == "" || dir == "" {
		return nil
	}
	paths := make([]string, 0, len(overlayExts))
	for _, ext := range overlayExts {
		paths = append(paths, filepath.Join(dir, overlayPrefix+env+ext))
	}
	return paths
}

// watchTargets 返回需要监视的文件路径。
func (s *Store) watchTargets() []string {
	var targets []string
	if s.opts.baseFile != "" {
		targets = append(targets, filepath.Clean(s.opts.baseFile))
	}
	return append(targets, s.overlayCandidates()...)
}

func loadFile(path, delim string) (Options, error) {
	if path == "" {
		return Options{}, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return Options{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return parse(data, format, delim)
}
