package filter

import (
	"path"
	"strings"

	"github.com/nickproject/sniwatch/internal/aggregator"
)

// Filter 域名显示过滤器，nil 表示不过滤
type Filter struct {
	includePatterns []string
	excludePatterns []string
}

// New 创建过滤器
func New(include, exclude []string) *Filter {
	return &Filter{
		includePatterns: normalizePatterns(include),
		excludePatterns: normalizePatterns(exclude),
	}
}

func normalizePatterns(patterns []string) []string {
	result := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Match 判断域名是否应该显示。排除规则优先；没有包含规则时默认显示。
func (f *Filter) Match(hostname string) bool {
	if f == nil {
		return true
	}
	hostname = strings.ToLower(hostname)

	for _, pattern := range f.excludePatterns {
		if matchPattern(pattern, hostname) {
			return false
		}
	}

	if len(f.includePatterns) == 0 {
		return true
	}
	for _, pattern := range f.includePatterns {
		if matchPattern(pattern, hostname) {
			return true
		}
	}
	return false
}

// Apply 返回通过过滤的分组，保持原有顺序
func (f *Filter) Apply(groups []aggregator.Group) []aggregator.Group {
	if f.IsEmpty() {
		return groups
	}
	kept := groups[:0:0]
	for _, g := range groups {
		if f.Match(g.Hostname) {
			kept = append(kept, g)
		}
	}
	return kept
}

// matchPattern 通配符匹配，支持 * 和 ?。
// *.example.com 同时匹配 example.com 本身及其任意子域名。
func matchPattern(pattern, hostname string) bool {
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:]
		return strings.HasSuffix(hostname, suffix) || hostname == pattern[2:]
	}

	// 域名中没有 '/'，path.Match 的 '*' 可以匹配任意字符
	matched, err := path.Match(pattern, hostname)
	if err != nil {
		return false
	}
	return matched
}

// IsEmpty 是否没有任何规则
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.includePatterns) == 0 && len(f.excludePatterns) == 0
}
