package fswatch

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Watcher 收集监控配置与回调，通过 Start 创建会话
//
// Watcher 本身不是并发安全的，应在一个 goroutine 中构建。
// Start 会复制当前的配置和回调表，之后对 Watcher 的修改只影响新的会话
type Watcher struct {
	cfg      Config
	handlers handlerTable

	monitor  Monitor
	log      logrus.FieldLogger
	pathKind PathKindFunc
}

// Option 定制 Watcher
type Option func(*Watcher)

// WithMonitor 替换默认的 ExecMonitor
func WithMonitor(m Monitor) Option {
	return func(w *Watcher) { w.monitor = m }
}

// WithLogger 设置日志输出，默认 logrus.StandardLogger()
func WithLogger(l logrus.FieldLogger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithPathKind 替换分类时使用的路径类型查询，默认 StatPathKind
func WithPathKind(fn PathKindFunc) Option {
	return func(w *Watcher) { w.pathKind = fn }
}

// NewWatcher 根据配置创建 Watcher
//
// monitor 不可用时返回 ErrMonitorUnavailable；
// cfg.Polling 为 true 时与 UsePolling 一样探测后端，不支持时返回 ErrUnsupportedBackend
func NewWatcher(cfg Config, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		cfg:      cfg.clone(),
		monitor:  ExecMonitor{},
		log:      logrus.StandardLogger(),
		pathKind: StatPathKind,
	}
	for _, o := range opts {
		o(w)
	}
	if err := w.monitor.Available(); err != nil {
		if errors.Is(err, ErrMonitorUnavailable) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrMonitorUnavailable, "%v", err)
	}
	if w.cfg.Polling {
		w.cfg.Polling = false
		if err := w.UsePolling(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Config 返回当前配置的副本
func (w *Watcher) Config() Config {
	return w.cfg.clone()
}

// AddWatch 追加监控路径
func (w *Watcher) AddWatch(paths ...string) *Watcher {
	w.cfg.Paths = append(w.cfg.Paths, paths...)
	return w
}

// UnWatch 移除监控路径，不存在的路径直接忽略
func (w *Watcher) UnWatch(paths ...string) *Watcher {
	drop := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		drop[p] = struct{}{}
	}
	kept := w.cfg.Paths[:0]
	for _, p := range w.cfg.Paths {
		if _, ok := drop[p]; !ok {
			kept = append(kept, p)
		}
	}
	w.cfg.Paths = kept
	return w
}

// Ignore 追加忽略规则，正则在第一次匹配时才编译
func (w *Watcher) Ignore(pattern string) *Watcher {
	w.cfg.Ignore = append(w.cfg.Ignore, pattern)
	return w
}

// UsePolling 切换到 poll_monitor 后端
//
// 会同步查询 monitor 支持的后端，不支持时返回 ErrUnsupportedBackend
func (w *Watcher) UsePolling() error {
	backends, err := w.monitor.Backends(context.Background())
	if err != nil {
		return errors.Wrapf(ErrUnsupportedBackend, "%v", err)
	}
	for _, b := range backends {
		if b == PollMonitor {
			w.cfg.Polling = true
			return nil
		}
	}
	return ErrUnsupportedBackend
}

// OneEvent 收到第一批事件后结束会话
func (w *Watcher) OneEvent() *Watcher {
	w.cfg.OneShot = true
	return w
}

// MultiEvent 持续监控，清除 OneEvent
func (w *Watcher) MultiEvent() *Watcher {
	w.cfg.OneShot = false
	return w
}

// OnAdd 文件创建
func (w *Watcher) OnAdd(fn PathFunc) *Watcher {
	w.handlers.set(FileCreated, fn)
	return w
}

// OnAddDir 目录创建
func (w *Watcher) OnAddDir(fn PathFunc) *Watcher {
	w.handlers.set(DirCreated, fn)
	return w
}

// OnChange 文件修改
func (w *Watcher) OnChange(fn PathFunc) *Watcher {
	w.handlers.set(FileModified, fn)
	return w
}

// OnUnlink 文件删除
func (w *Watcher) OnUnlink(fn PathFunc) *Watcher {
	w.handlers.set(FileRemoved, fn)
	return w
}

// OnUnlinkDir 目录删除
func (w *Watcher) OnUnlinkDir(fn PathFunc) *Watcher {
	w.handlers.set(DirRemoved, fn)
	return w
}

// OnAny 没有专属回调的事件都交给 fn
func (w *Watcher) OnAny(fn AnyFunc) *Watcher {
	w.handlers.any = fn
	return w
}

// OnError monitor 错误输出与运行期错误，启动前必须注册
func (w *Watcher) OnError(fn ErrorFunc) *Watcher {
	w.handlers.err = fn
	return w
}

// Run 启动会话并阻塞到会话结束
//
// ctx 取消时停止会话并返回 nil
func (w *Watcher) Run(ctx context.Context) error {
	s, err := w.Start(ctx)
	if err != nil {
		return err
	}
	return s.Wait()
}
