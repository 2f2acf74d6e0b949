// Package fswatch 基于外部 fswatch 进程监控文件系统，并将原始事件分类后回调给调用方。
//
// 核心特点：
//   - 解析 fswatch -xrn 输出的 "<path> <code>" 行协议
//   - 结合当前文件系统状态把原始 code 归类为文件/目录的创建、修改、删除
//   - 按"专属回调 > Any 兜底 > 丢弃"的优先级分发事件
//   - stdout 与 stderr 由独立 goroutine 并发读取，避免一端写满缓冲区造成死锁
//   - 支持单次模式(OneEvent)与持续模式(MultiEvent)，随时可以 Stop
//   - 没有安装 fswatch 时可以使用基于 fsnotify 的 NotifyMonitor
//
// 注意：
//   - 一次读取包含多条记录时只解析第二条记录(见 selectRecords)
//   - 删除事件在分类时路径通常已不存在，此时归为 DirRemoved
//   - 无法归类的 code(例如只改了属性、目录上的更新)不会触发任何回调，包括 Any
//   - 回调同步执行，慢回调会阻塞后续事件
//
// 推荐使用方式：
//  1. 通过 NewWatcher 创建 Watcher
//  2. 使用 AddWatch / Ignore / UsePolling / OneEvent 配置
//  3. 注册 OnAdd、OnChange 等回调，以及必需的 OnError
//  4. 调用 Start 得到 Session，或调用 Run 阻塞运行
//  5. 调用 Session.Stop 结束监控
//
// 错误处理：
//   - 配置期错误(ErrMonitorUnavailable、ErrUnsupportedBackend、
//     ErrNoHandlersRegistered、ErrMissingErrorHandler)直接返回
//   - 运行期错误(*StreamError、*IgnoreRuleError、ErrMonitorExited)通过 OnError 回调投递
package fswatch
