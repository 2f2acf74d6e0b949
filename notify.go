package fswatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// NotifyBackend 是 NotifyMonitor 报告的唯一后端
const NotifyBackend = "fsnotify_monitor"

// NotifyMonitor 在进程内使用 fsnotify 产生与 fswatch 相同格式的输出
//
// 适用于没有安装 fswatch 的环境。不支持轮询后端。
// 单次模式下写出第一条创建、修改或删除记录后自行退出，chmod 不计入
type NotifyMonitor struct{}

// Available 总是可用
func (NotifyMonitor) Available() error { return nil }

// Backends 只返回 NotifyBackend
func (NotifyMonitor) Backends(ctx context.Context) ([]string, error) {
	return []string{NotifyBackend}, nil
}

// Start 为 cfg.Paths 递归建立 fsnotify 监控，cfg.Polling 为 true 时返回 ErrUnsupportedBackend
func (NotifyMonitor) Start(ctx context.Context, cfg Config) (Process, error) {
	if cfg.Polling {
		return nil, ErrUnsupportedBackend
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	p := &notifyProcess{
		fsw:     fsw,
		oneShot: cfg.OneShot,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, pat := range cfg.Ignore {
		// 非法规则由会话报告，这里只用于跳过目录
		if re, err := regexp.Compile(pat); err == nil {
			p.ignore = append(p.ignore, re)
		}
	}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()

	for _, path := range cfg.Paths {
		if err := p.addTree(path); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	go p.run()
	return p, nil
}

type notifyProcess struct {
	fsw     *fsnotify.Watcher
	ignore  []*regexp.Regexp
	oneShot bool

	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	exitErr  error
}

func (p *notifyProcess) Stdout() io.Reader { return p.stdoutR }
func (p *notifyProcess) Stderr() io.Reader { return p.stderrR }

func (p *notifyProcess) Kill() error {
	p.stopOnce.Do(func() {
		close(p.stop)
		_ = p.fsw.Close()
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
	})
	return nil
}

func (p *notifyProcess) Wait() error {
	<-p.done
	return p.exitErr
}

// addTree 递归添加目录监控；root 本身是文件时直接监控该文件
func (p *notifyProcess) addTree(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		return errors.Wrapf(err, "failed to stat watch path %s", root)
	}
	if !fi.IsDir() {
		return errors.Wrapf(p.fsw.Add(root), "cannot watch %s", root)
	}
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && p.isIgnored(path) {
			return filepath.SkipDir
		}
		return errors.Wrapf(p.fsw.Add(path), "cannot watch dir %s", path)
	})
	return errors.Wrapf(err, "failed to walk watch path %s", root)
}

func (p *notifyProcess) isIgnored(path string) bool {
	for _, re := range p.ignore {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// run 把 fsnotify 事件写成 "<path> <code>" 行
func (p *notifyProcess) run() {
	defer close(p.done)
	defer p.stderrW.Close()
	defer p.stdoutW.Close()
	defer p.fsw.Close()

	for {
		select {
		case ev, ok := <-p.fsw.Events:
			if !ok {
				p.exit(errors.New("fsnotify watcher closed"))
				return
			}
			code := notifyCode(ev.Op)
			if code == NoOpCode {
				continue
			}
			// 新建目录需要额外添加监控
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := p.addTree(ev.Name); err != nil {
						fmt.Fprintf(p.stderrW, "%v\n", err)
					}
				}
			}
			if _, err := fmt.Fprintf(p.stdoutW, "%s %d\n", ev.Name, code); err != nil {
				return
			}
			// 属性变化不会被分类，单次模式要等到可分类的事件才退出
			if p.oneShot && code != AttributeModifiedCode {
				return
			}

		case err, ok := <-p.fsw.Errors:
			if !ok {
				p.exit(errors.New("fsnotify watcher closed"))
				return
			}
			if _, werr := fmt.Fprintf(p.stderrW, "%v\n", err); werr != nil {
				return
			}

		case <-p.stop:
			return
		}
	}
}

// exit 记录非 Kill 引起的退出
func (p *notifyProcess) exit(err error) {
	select {
	case <-p.stop:
	default:
		p.exitErr = err
	}
}

func notifyCode(op fsnotify.Op) int {
	switch {
	case op.Has(fsnotify.Create):
		return CreateCode
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return RemoveCode
	case op.Has(fsnotify.Write):
		return UpdateCode
	case op.Has(fsnotify.Chmod):
		return AttributeModifiedCode
	}
	return NoOpCode
}
