package fswatch

// PathFunc 处理单一类型的事件
//
// 回调在分发 goroutine 中同步执行，执行期间不会投递后续事件，
// 耗时的处理应自行转交给其它 goroutine
type PathFunc func(path string)

// AnyFunc 是没有专属回调时的兜底处理
type AnyFunc func(kind EventKind, path string)

// ErrorFunc 接收 monitor 的错误输出以及运行期错误
//
// err 可能是 *StreamError、*IgnoreRuleError 或包装了 ErrMonitorExited 的错误
type ErrorFunc func(err error)

// handlerTable 每个具体类型一个槽位，外加 Any 兜底槽和 Error 槽
//
// 重复注册同一类型时后者覆盖前者
type handlerTable struct {
	kinds [Error]PathFunc
	any   AnyFunc
	err   ErrorFunc
}

func (t *handlerTable) set(kind EventKind, fn PathFunc) {
	t.kinds[kind] = fn
}

func (t *handlerTable) empty() bool {
	if t.any != nil || t.err != nil {
		return false
	}
	for _, fn := range t.kinds {
		if fn != nil {
			return false
		}
	}
	return true
}

// dispatch 按优先级路由：专属回调 > Any > 丢弃
func (t *handlerTable) dispatch(ev Event) {
	if ev.Kind >= 0 && ev.Kind < Error {
		if fn := t.kinds[ev.Kind]; fn != nil {
			fn(ev.Path)
			return
		}
	}
	if t.any != nil {
		t.any(ev.Kind, ev.Path)
	}
}

// dispatchError 直接调用 Error 回调，不会落到 Any
func (t *handlerTable) dispatchError(err error) {
	if t.err != nil {
		t.err(err)
	}
}
