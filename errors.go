package fswatch

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMonitorUnavailable monitor 可执行文件无法定位或运行
	ErrMonitorUnavailable = errors.New("fswatch monitor is not available")
	// ErrUnsupportedBackend 请求了轮询，但环境不提供 poll_monitor
	ErrUnsupportedBackend = errors.New("the operating system does not support polling")
	// ErrNoHandlersRegistered 启动时尚未注册任何回调
	ErrNoHandlersRegistered = errors.New("no event handlers registered")
	// ErrMissingErrorHandler 启动时未注册 Error 回调
	ErrMissingErrorHandler = errors.New("no error handler registered")
	// ErrMonitorExited monitor 进程在非调用方要求的情况下退出
	ErrMonitorExited = errors.New("fswatch monitor exited")
)

// ParseError 表示单条记录解析失败，只影响这一条记录
type ParseError struct {
	Record string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed record %q: %s", e.Record, e.Reason)
}

// StreamError 承载 monitor 标准错误输出的原文
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "fswatch: " + strings.TrimSpace(e.Message)
}

// IgnoreRuleError 表示忽略规则不是合法的正则表达式
type IgnoreRuleError struct {
	Pattern string
	Err     error
}

func (e *IgnoreRuleError) Error() string {
	return fmt.Sprintf("invalid ignore pattern %q: %v", e.Pattern, e.Err)
}

func (e *IgnoreRuleError) Unwrap() error { return e.Err }
