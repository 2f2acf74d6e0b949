package fswatch

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

// Monitor 启动产生原始事件文本的 monitor
type Monitor interface {
	// Available 检查 monitor 能否运行
	Available() error
	// Backends 列出 monitor 支持的后端
	Backends(ctx context.Context) ([]string, error)
	// Start 按配置启动一个 monitor 进程
	Start(ctx context.Context, cfg Config) (Process, error)
}

// Process 是一个运行中的 monitor
//
// Kill 之后 Stdout/Stderr 必须读到 EOF(或关闭错误)，
// Wait 在两个流读完后调用
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	Kill() error
	Wait() error
}

// ExecMonitor 通过外部 fswatch 可执行文件获取事件
type ExecMonitor struct {
	// Path 可执行文件名或路径，为空时使用 "fswatch"
	Path string
}

func (m ExecMonitor) bin() string {
	if m.Path == "" {
		return "fswatch"
	}
	return m.Path
}

// Available 在 PATH(或 Path 指定的位置)中查找可执行文件，找不到时返回 ErrMonitorUnavailable
func (m ExecMonitor) Available() error {
	if _, err := exec.LookPath(m.bin()); err != nil {
		return errors.Wrapf(ErrMonitorUnavailable, "%v", err)
	}
	return nil
}

// Backends 执行 fswatch --list-monitors 并解析输出
func (m ExecMonitor) Backends(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, m.bin(), "--list-monitors").Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list fswatch monitors")
	}
	return ParseBackends(string(out)), nil
}

// Start 以 Args(cfg) 为参数启动 fswatch 进程
func (m ExecMonitor) Start(ctx context.Context, cfg Config) (Process, error) {
	cmd := exec.Command(m.bin(), Args(cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open fswatch stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open fswatch stderr")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", m.bin())
	}
	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	killOnce sync.Once
	killErr  error
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

// Kill 结束进程并关闭读端，确保阻塞中的读取返回
func (p *execProcess) Kill() error {
	p.killOnce.Do(func() {
		err := p.cmd.Process.Kill()
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.killErr = err
		}
		_ = p.stdout.Close()
		_ = p.stderr.Close()
	})
	return p.killErr
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}
