// Package xconf 提供日志配置文档的加载、合并与热重载，基于 koanf 实现。
//
// # 设计理念
//
// xconf 只做三件事：
//   - Options：不可变的配置映射（命名条目 + 位置条目）
//   - Merge：纯函数式深度合并，后者覆盖前者
//   - Store：持有"profile 名 → 选项集"文档，按环境叠加 overlay 文件
//
// koanf 仅用作解析器（YAML/JSON → map），合并语义由 Merge 定义，
// 不依赖 koanf 自身的合并行为。
//
// # 合并规则
//
//   - 两侧都是映射的键：递归合并
//   - 其余键（标量、列表）：后者整体替换前者
//   - 位置条目：按顺序追加
//   - 非映射输入被跳过（定义好的容忍行为，不是错误）
//
// # 环境叠加
//
// Store 的基础文档来自内嵌默认值、文件或字节数据。
// 设置环境名与配置目录后（WithOverlay，或 WithEnv 读取 ENVIRONMENT
// 与 TIMBER_CONFIGS），若 <dir>/timber.<env>.yaml 存在（依次尝试
// .yaml、.yml、.json），则在查找 profile 之前将其深度合并到基础文档上。
// 任一值缺失或文件不存在都不是错误。
//
// 合并后的文档必须包含 DEFAULT 映射，否则 NewStore 返回 ErrMissingDefault。
//
// # 并发安全
//
// Store 的所有方法并发安全：Reload 在写锁下原子替换文档，失败时保留旧文档。
// Options 本身不可变，可在 goroutine 间自由共享。
//
// # 配置监视
//
// Watch 基于 fsnotify 监视文件型来源所在目录，内置防抖，支持 vim/emacs
// 原子写入。Watcher.Run 在调用方 goroutine 上重载并回调，ctx 结束即返回。
package xconf
