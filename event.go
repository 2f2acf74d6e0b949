package fswatch

import "fmt"

// fswatch --numeric 输出的事件标志位
//
// 分类器只关心 CreateCode / UpdateCode / RemoveCode，
// 其余常量供 NotifyMonitor 和测试使用
const (
	NoOpCode              = 0
	PlatformSpecificCode  = 1
	CreateCode            = 2
	UpdateCode            = 4
	RemoveCode            = 8
	RenamedCode           = 16
	OwnerModifiedCode     = 32
	AttributeModifiedCode = 64
	MovedFromCode         = 128
	MovedToCode           = 256
	IsFileCode            = 512
	IsDirCode             = 1024
	IsSymLinkCode         = 2048
	LinkCode              = 4096
	OverflowCode          = 8192
)

// EventKind 是经过分类后的事件类型
//
// Error 和 Any 只用于分发路由，分类器不会产生它们
type EventKind int

const (
	FileCreated  EventKind = iota // 文件创建
	DirCreated                    // 目录创建
	FileModified                  // 文件修改
	FileRemoved                   // 文件删除
	DirRemoved                    // 目录删除(路径已不存在的删除也归到这里)
	Error                         // Error 回调
	Any                           // Any 回调

	kindCount
)

var kindNames = [kindCount]string{
	FileCreated:  "file_created",
	DirCreated:   "dir_created",
	FileModified: "file_modified",
	FileRemoved:  "file_removed",
	DirRemoved:   "dir_removed",
	Error:        "error",
	Any:          "any",
}

// String 返回 "file_created" 这样的名字，越界时返回 "EventKind(n)"
func (k EventKind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return kindNames[k]
}

// RawEvent 是解析器从 monitor 一行输出中得到的原始事件
//
// Path：变更路径
// Code：路径后的第一个数字标志
// Flags：其后附带的其余数字标志(可为空)
type RawEvent struct {
	Path  string
	Code  int
	Flags []int
}

// Event 表示分类后交给回调的事件
type Event struct {
	Kind EventKind
	Path string
}

// String 返回 "<kind> <path>"
func (e Event) String() string {
	return e.Kind.String() + " " + e.Path
}
