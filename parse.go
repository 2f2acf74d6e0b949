package fswatch

import (
	"strconv"
	"strings"
)

// ParseChunk 将 monitor 一次读取到的标准输出文本解析为原始事件
//
// chunk 可以包含多条以换行分隔的记录，空白记录会被丢弃。
// 实际参与解析的记录由 selectRecords 决定。
// 格式错误的记录只产生一个 *ParseError，不影响其它记录。
func ParseChunk(chunk string) ([]RawEvent, []error) {
	var records []string
	for _, line := range strings.Split(chunk, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, line)
	}

	var (
		events []RawEvent
		errs   []error
	)
	for _, rec := range selectRecords(records) {
		ev, err := parseRecord(rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, ev)
	}
	return events, errs
}

// selectRecords 决定一个 chunk 中哪些记录需要解析
//
// fswatch 多行 flush 时第一行可能是过期数据：多于一条记录时只保留第二条。
// 该策略集中在这里，修正时只需要改这个函数。
func selectRecords(records []string) []string {
	if len(records) <= 1 {
		return records
	}
	return records[1:2]
}

// parseRecord 解析 "<path> <code> [<flags>...]"
//
// 末尾连续的整数字段都是标志，第一个为 code；之前的部分原样作为路径，
// 这样路径中包含空格也能保留。
// 已知限制：以空格分隔的纯数字结尾的路径无法与标志区分，
// 例如 "/tmp/Report 2024 2" 会被解析为路径 "/tmp/Report"、code 2024。
// fswatch 的文本输出本身没有分隔符可以消除这个歧义
func parseRecord(rec string) (RawEvent, error) {
	line := strings.TrimRight(rec, "\r")
	fields := strings.Split(line, " ")

	i := len(fields)
	for i > 0 {
		f := fields[i-1]
		if f == "" {
			// 末尾多余的空格
			if i == len(fields) {
				fields = fields[:i-1]
				i--
				continue
			}
			break
		}
		if _, err := strconv.Atoi(f); err != nil {
			break
		}
		i--
	}
	if i == len(fields) {
		return RawEvent{}, &ParseError{Record: rec, Reason: "missing numeric event code"}
	}

	path := strings.Join(fields[:i], " ")
	if strings.TrimSpace(path) == "" {
		return RawEvent{}, &ParseError{Record: rec, Reason: "missing path"}
	}

	flags := make([]int, 0, len(fields)-i)
	for _, f := range fields[i:] {
		n, _ := strconv.Atoi(f)
		flags = append(flags, n)
	}
	return RawEvent{Path: path, Code: flags[0], Flags: flags[1:]}, nil
}
