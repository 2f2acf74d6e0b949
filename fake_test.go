package fswatch

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeMonitor 记录启动次数，进程输出通过 io.Pipe 由测试写入
type fakeMonitor struct {
	mu          sync.Mutex
	backends    string
	backendsErr error
	unavailable bool
	startErr    error
	starts      int
	lastCfg     Config
	procs       []*fakeProcess
}

func (m *fakeMonitor) Available() error {
	if m.unavailable {
		return errors.New("exec: \"fswatch\": executable file not found in $PATH")
	}
	return nil
}

func (m *fakeMonitor) Backends(ctx context.Context) ([]string, error) {
	if m.backendsErr != nil {
		return nil, m.backendsErr
	}
	return ParseBackends(m.backends), nil
}

func (m *fakeMonitor) Start(ctx context.Context, cfg Config) (Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	m.lastCfg = cfg
	if m.startErr != nil {
		return nil, m.startErr
	}
	p := newFakeProcess()
	m.procs = append(m.procs, p)
	return p, nil
}

func (m *fakeMonitor) startCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

func (m *fakeMonitor) proc(t *testing.T) *fakeProcess {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.procs) == 0 {
		t.Fatal("monitor was never started")
	}
	return m.procs[len(m.procs)-1]
}

type fakeProcess struct {
	outR, errR *io.PipeReader
	outW, errW *io.PipeWriter

	mu    sync.Mutex
	kills int

	exitOnce sync.Once
	exited   chan struct{}
	exitErr  error
}

func newFakeProcess() *fakeProcess {
	p := &fakeProcess{exited: make(chan struct{})}
	p.outR, p.outW = io.Pipe()
	p.errR, p.errW = io.Pipe()
	return p
}

func (p *fakeProcess) Stdout() io.Reader { return p.outR }
func (p *fakeProcess) Stderr() io.Reader { return p.errR }

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	p.exit(errors.New("signal: killed"))
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.exited
	return p.exitErr
}

// exit 模拟进程退出：关闭输出并让 Wait 返回 err
func (p *fakeProcess) exit(err error) {
	p.exitOnce.Do(func() {
		p.exitErr = err
		_ = p.outW.Close()
		_ = p.errW.Close()
		close(p.exited)
	})
}

func (p *fakeProcess) killCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

// stdout 写入一次读取的内容，返回时数据已被会话读走
func (p *fakeProcess) stdout(s string) error {
	_, err := io.WriteString(p.outW, s)
	return err
}

func (p *fakeProcess) stderr(s string) error {
	_, err := io.WriteString(p.errW, s)
	return err
}

// fakeKinds 以 map 模拟文件系统状态，未登记的路径为 Missing
type fakeKinds map[string]PathKind

func (k fakeKinds) lookup(path string) PathKind {
	return k[path]
}

const waitTimeout = 2 * time.Second

func recv[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for callback")
	}
	var zero T
	return zero
}

func waitDone(t *testing.T, s *Session) error {
	t.Helper()
	select {
	case <-s.Done():
		return s.Wait()
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for session to terminate")
	}
	return nil
}
