package fswatch

import "os"

// PathKind 是分类时路径在文件系统中的状态
type PathKind int

const (
	Missing   PathKind = iota // 不存在或无法 stat
	File                      // 普通文件及其它非目录
	Directory                 // 目录
)

// PathKindFunc 查询路径当前的类型
type PathKindFunc func(path string) PathKind

// StatPathKind 使用 os.Stat 判断路径类型
//
// 只有普通文件算作 File；stat 失败以及其它类型(设备、fifo 等)都视为 Missing
func StatPathKind(path string) PathKind {
	fi, err := os.Stat(path)
	if err != nil {
		return Missing
	}
	switch {
	case fi.Mode().IsRegular():
		return File
	case fi.IsDir():
		return Directory
	}
	return Missing
}

// Classify 将原始 code 结合路径当前状态归类为 EventKind
//
// 规则按顺序：
//  1. CreateCode：普通文件为 FileCreated，否则 DirCreated
//  2. RemoveCode：分类时仍是普通文件为 FileRemoved，否则 DirRemoved。
//     删除后路径通常已不存在(Missing)，因此被删除的文件多半会归为 DirRemoved，
//     只有 stat 抢在删除完成前执行时才会得到 FileRemoved
//  3. UpdateCode 且为普通文件：FileModified
//  4. 其余组合不产生事件，ok 返回 false
func Classify(path string, code int, kind PathKindFunc) (k EventKind, ok bool) {
	switch code {
	case CreateCode:
		if kind(path) == File {
			return FileCreated, true
		}
		return DirCreated, true
	case RemoveCode:
		if kind(path) == File {
			return FileRemoved, true
		}
		return DirRemoved, true
	case UpdateCode:
		if kind(path) == File {
			return FileModified, true
		}
	}
	return 0, false
}
