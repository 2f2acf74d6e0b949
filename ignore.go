package fswatch

import "regexp"

// ignoreRule 延迟编译的忽略规则
type ignoreRule struct {
	pattern  string
	re       *regexp.Regexp
	compiled bool
	invalid  bool
}

// ignoreSet 在分类前过滤路径
//
// 规则只在第一次匹配时编译；非法规则报告一次后被跳过。
// 仅由分发 goroutine 访问，无需加锁
type ignoreSet struct {
	rules []*ignoreRule
}

func newIgnoreSet(patterns []string) *ignoreSet {
	s := &ignoreSet{rules: make([]*ignoreRule, 0, len(patterns))}
	for _, p := range patterns {
		s.rules = append(s.rules, &ignoreRule{pattern: p})
	}
	return s
}

// match 判断 path 是否命中任意规则；report 收到本次新发现的非法规则
func (s *ignoreSet) match(path string, report func(error)) bool {
	ignored := false
	for _, r := range s.rules {
		if r.invalid {
			continue
		}
		if !r.compiled {
			re, err := regexp.Compile(r.pattern)
			r.compiled = true
			if err != nil {
				r.invalid = true
				report(&IgnoreRuleError{Pattern: r.pattern, Err: err})
				continue
			}
			r.re = re
		}
		if r.re.MatchString(path) {
			ignored = true
		}
	}
	return ignored
}
