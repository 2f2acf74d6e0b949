package fswatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// State 会话状态，只能单向迁移
type State int

const (
	Idle       State = iota // 尚未启动 monitor
	Running                 // 正在分发事件
	Draining                // 单次模式已收到第一批事件，正在结束 monitor
	Terminated              // 会话结束，不再分发
)

// String 返回小写的状态名
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

const (
	readBufferSize = 32 * 1024
	// maxRecordSize 单条 stdout 记录的上限，超出后丢弃到下一个换行
	maxRecordSize = 4 * readBufferSize
)

type stream int

const (
	stdoutStream stream = iota
	stderrStream
)

func (s stream) String() string {
	if s == stderrStream {
		return "stderr"
	}
	return "stdout"
}

type chunk struct {
	stream stream
	data   string
}

// Session 是一次运行中的监控
//
// 每个会话独占一个 monitor 进程。stdout 与 stderr 各由一个 goroutine 读取，
// 汇入同一个通道后由单个分发 goroutine 顺序处理：同一流内保持读取顺序，
// 两个流之间不保证先后。
// 会话结束(Terminated)后不再投递任何事件。分发前的状态检查与回调调用不是原子的：
// 并发调用 Stop 时，正在执行的回调会执行完，已通过检查的最后一个事件也可能仍被投递；
// Stop 返回之后再开始的分发一律被丢弃。
type Session struct {
	cfg      Config
	handlers handlerTable
	ignore   *ignoreSet
	pathKind PathKindFunc
	log      logrus.FieldLogger
	proc     Process

	mu            sync.Mutex
	state         State
	stopRequested bool

	err  error
	done chan struct{}
}

// Start 启动 monitor 并开始分发事件
//
// 回调表为空返回 ErrNoHandlersRegistered，缺少 Error 回调返回
// ErrMissingErrorHandler，两种情况都不会启动进程。
// ctx 取消等价于调用 Stop
func (w *Watcher) Start(ctx context.Context) (*Session, error) {
	if w.handlers.empty() {
		return nil, ErrNoHandlersRegistered
	}
	if w.handlers.err == nil {
		return nil, ErrMissingErrorHandler
	}

	cfg := w.cfg.clone()
	s := &Session{
		cfg:      cfg,
		handlers: w.handlers,
		ignore:   newIgnoreSet(cfg.Ignore),
		pathKind: w.pathKind,
		log: w.log.WithFields(logrus.Fields{
			"paths":    cfg.Paths,
			"one_shot": cfg.OneShot,
			"polling":  cfg.Polling,
		}),
		state: Idle,
		done:  make(chan struct{}),
	}

	proc, err := w.monitor.Start(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start monitor")
	}
	s.proc = proc
	s.state = Running
	s.log.Debug("monitor started")

	chunks := make(chan chunk, 64)
	var g errgroup.Group
	g.Go(func() error { return s.read(proc.Stdout(), stdoutStream, chunks) })
	g.Go(func() error { return s.read(proc.Stderr(), stderrStream, chunks) })
	go func() {
		if err := g.Wait(); err != nil {
			s.log.WithError(err).Warn("monitor stream failed")
		}
		close(chunks)
	}()
	go s.loop(chunks)

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = s.Stop()
			case <-s.done:
			}
		}()
	}
	return s, nil
}

// State 返回当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done 在会话结束且 monitor 进程回收后关闭
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait 阻塞到会话结束
//
// 调用方停止(Stop、ctx 取消或单次模式完成)时返回 nil，
// monitor 自行退出时返回包装了 ErrMonitorExited 的错误。
// 不要在回调中调用 Wait
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Stop 结束会话，可重复调用，也可以在回调中调用
//
// 只会向 monitor 发送一次终止信号
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopRequested || s.state == Terminated {
		s.mu.Unlock()
		return nil
	}
	s.stopRequested = true
	s.state = Terminated
	s.mu.Unlock()

	s.log.Debug("stopping monitor")
	return s.kill()
}

func (s *Session) kill() error {
	if err := s.proc.Kill(); err != nil {
		s.log.WithError(err).Warn("failed to kill monitor")
		return errors.Wrap(err, "failed to stop monitor")
	}
	return nil
}

// read 持续读取一个流并投递到 out
//
// stdout 只投递完整的行，不完整的尾部留到下一次读取，EOF 时一并投递。
// 尾部超过 maxRecordSize 时记录 ParseError 并丢弃到下一个换行
func (s *Session) read(r io.Reader, st stream, out chan<- chunk) error {
	buf := make([]byte, readBufferSize)
	var (
		pending    []byte
		discarding bool
	)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := append(pending, buf[:n]...)
			pending = nil
			if st == stdoutStream {
				if discarding {
					if i := bytes.IndexByte(data, '\n'); i < 0 {
						data = nil
					} else {
						data, discarding = data[i+1:], false
					}
				}
				i := bytes.LastIndexByte(data, '\n')
				if i < 0 {
					pending, data = data, nil
				} else {
					pending = append([]byte(nil), data[i+1:]...)
					data = data[:i+1]
				}
				if len(pending) > maxRecordSize {
					s.dropOversized(pending)
					pending, discarding = nil, true
				}
			}
			if len(data) > 0 {
				out <- chunk{stream: st, data: string(data)}
			}
		}
		if err != nil {
			if len(pending) > 0 {
				out <- chunk{stream: st, data: string(pending)}
			}
			if err == io.EOF || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) || s.stopping() {
				return nil
			}
			return errors.Wrapf(err, "failed to read monitor %s", st)
		}
	}
}

func (s *Session) dropOversized(rec []byte) {
	head := rec
	if len(head) > 64 {
		head = head[:64]
	}
	err := &ParseError{
		Record: string(head),
		Reason: fmt.Sprintf("record exceeds %d bytes", maxRecordSize),
	}
	s.log.WithError(err).WithField("record", err.Record).Warn("dropping monitor record")
}

// loop 是唯一的分发 goroutine；会话结束后继续读空通道，让读取方退出
func (s *Session) loop(chunks <-chan chunk) {
	for c := range chunks {
		if !s.active() {
			continue
		}
		switch c.stream {
		case stderrStream:
			s.emitError(&StreamError{Message: c.data})
		case stdoutStream:
			s.handleOutput(c.data)
		}
	}
	s.finish(s.proc.Wait())
}

func (s *Session) handleOutput(data string) {
	events, errs := ParseChunk(data)
	for _, err := range errs {
		entry := s.log.WithError(err)
		var pe *ParseError
		if errors.As(err, &pe) {
			entry = entry.WithField("record", pe.Record)
		}
		entry.Warn("dropping monitor record")
	}

	n := 0
	for _, raw := range events {
		if s.ignore.match(raw.Path, s.emitError) {
			continue
		}
		kind, ok := Classify(raw.Path, raw.Code, s.pathKind)
		if !ok {
			continue
		}
		n++
		if !s.active() {
			return
		}
		s.handlers.dispatch(Event{Kind: kind, Path: raw.Path})
	}

	if n > 0 && s.cfg.OneShot {
		s.drain()
	}
}

// drain 单次模式下第一批事件分发完毕后结束 monitor
func (s *Session) drain() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	s.state = Draining
	s.stopRequested = true
	s.mu.Unlock()

	s.log.Debug("first batch dispatched, stopping monitor")
	_ = s.kill()

	s.mu.Lock()
	s.state = Terminated
	s.mu.Unlock()
}

func (s *Session) finish(waitErr error) {
	s.mu.Lock()
	requested := s.stopRequested
	s.state = Terminated
	s.mu.Unlock()

	if !requested {
		err := ErrMonitorExited
		if waitErr != nil {
			err = errors.Wrapf(ErrMonitorExited, "%v", waitErr)
		}
		s.err = err
		s.log.WithError(waitErr).Warn("monitor exited unexpectedly")
		s.handlers.dispatchError(err)
	} else {
		s.log.Debug("monitor stopped")
	}
	close(s.done)
}

func (s *Session) emitError(err error) {
	if !s.active() {
		return
	}
	s.handlers.dispatchError(err)
}

func (s *Session) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Running
}

func (s *Session) stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}
