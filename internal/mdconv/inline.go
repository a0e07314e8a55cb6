package mdconv

import (
	"strings"
	"unicode"

	"github.com/John-Robertt/notionsync/internal/domain"
)

// Inline 渲染富文本片段：行内代码、粗体、斜体、删除线、链接、行内公式。
// 下划线在 markdown 中没有对应语法，按普通文本输出。
func Inline(rts []domain.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(segment(rt))
	}
	return b.String()
}

func segment(rt domain.RichText) string {
	if rt.Type == "equation" {
		expr := strings.TrimSpace(rt.Expression)
		if expr == "" {
			expr = strings.TrimSpace(rt.PlainText)
		}
		if expr == "" {
			return ""
		}
		return "$" + expr + "$"
	}

	// 标记符必须紧贴非空白字符，否则 markdown 不认：首尾空白留在标记外面。
	lead, core, trail := splitSpace(rt.PlainText)
	if core == "" {
		return rt.PlainText
	}
	a := rt.Annotations
	if a.Code {
		core = inlineCode(core)
	}
	if a.Strikethrough {
		core = "~~" + core + "~~"
	}
	if a.Italic {
		core = "*" + core + "*"
	}
	if a.Bold {
		core = "**" + core + "**"
	}
	if rt.Href != "" {
		core = "[" + core + "](" + destination(rt.Href) + ")"
	}
	return lead + core + trail
}

func inlineCode(s string) string {
	if !strings.Contains(s, "`") {
		return "`" + s + "`"
	}
	return "`` " + s + " ``"
}

func splitSpace(s string) (lead, core, trail string) {
	core = strings.TrimLeftFunc(s, unicode.IsSpace)
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}
