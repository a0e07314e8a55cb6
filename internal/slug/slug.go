// Package slug 把标题/自定义标识转换为文件名安全的 slug。
package slug

import (
	"regexp"
	"strings"
	"unicode"

	goslug "github.com/goliatone/go-slug"
)

// MaxRunes 是 slug 的最大长度（按字符计，中文也算 1 个）。
const MaxRunes = 100

var disallowed = regexp.MustCompile(`[^a-z0-9\p{Han}]+`)

// Make 把标题转换为 slug：
// - 转小写
// - 字母/数字/汉字之外的连续字符折叠为一个 '-'
// - 去掉首尾 '-'，并截断到 MaxRunes
//
// 结果可能为空（例如标题全是符号），调用方需自行兜底。
func Make(title string) string {
	s := disallowed.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if r := []rune(s); len(r) > MaxRunes {
		s = strings.Trim(string(r[:MaxRunes]), "-")
	}
	return s
}

// Custom 处理用户在 Slug 属性里显式给出的标识。
//
// 已是合法 slug 的值原样使用；否则先按通用规则规范化，含汉字的值走 Make 以保留汉字。
// 任何情况下都不会返回包含路径分隔符的结果。
func Custom(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if goslug.IsValid(s) {
		return s
	}
	if !hasHan(s) {
		if n, err := goslug.Normalize(s); err == nil {
			if n = Make(n); n != "" {
				return n
			}
		}
	}
	return Make(s)
}

// Resolve 计算文档的最终 slug：自定义 slug 优先，其次标题；都为空时回退到去掉 '-' 的页面 ID。
func Resolve(custom, title, pageID string) string {
	if s := Custom(custom); s != "" {
		return s
	}
	if s := Make(title); s != "" {
		return s
	}
	return strings.ToLower(strings.ReplaceAll(pageID, "-", ""))
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
