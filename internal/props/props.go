// Package props 把页面的带类型属性规范化为 domain.Metadata。
//
// Extract 是纯函数且从不失败：上游数据录入不可信，缺失或类型不符的字段一律回退到默认值。
package props

import (
	"strings"
	"time"

	"github.com/John-Robertt/notionsync/internal/domain"
)

// Schema 描述各字段对应的属性名（可通过配置覆盖）。
type Schema struct {
	Title   string
	Date    string
	Tags    string
	Summary string
	Author  string
	Slug    string
	Cover   string
}

// DefaultSchema 与内容库模板中的属性名一致。
func DefaultSchema() Schema {
	return Schema{
		Title:   "Title",
		Date:    "PublishDate",
		Tags:    "Tags",
		Summary: "Summary",
		Author:  "Author",
		Slug:    "Slug",
		Cover:   "CoverImage",
	}
}

const dateLayout = "2006-01-02"

// Extract 规范化一篇页面的元数据。now 用作日期缺失/非法时的兜底。
func Extract(page domain.Page, schema Schema, now time.Time) domain.Metadata {
	return domain.Metadata{
		PageID:   page.ID,
		Title:    Title(page, schema.Title),
		Date:     Date(page.Properties[schema.Date], now),
		Tags:     Tags(page.Properties[schema.Tags]),
		Summary:  strings.TrimSpace(text(page.Properties[schema.Summary])),
		Author:   Author(page.Properties[schema.Author]),
		Slug:     strings.TrimSpace(text(page.Properties[schema.Slug])),
		CoverURL: CoverURL(page, schema.Cover),
	}
}

// Title 取标题属性的全部片段；配置的属性不存在时回退到页面唯一的 title 类型属性。
func Title(page domain.Page, name string) string {
	p, ok := page.Properties[name]
	if !ok {
		for _, cand := range page.Properties {
			if cand.Type == "title" {
				p, ok = cand, true
				break
			}
		}
	}
	if ok {
		if s := strings.TrimSpace(text(p)); s != "" {
			return s
		}
	}
	return domain.DefaultTitle
}

// Date 返回 YYYY-MM-DD。
//
// 带时刻的值按其自带时区取日历日（作者写下的那一天），不换算到 UTC。
func Date(p domain.Property, now time.Time) string {
	if p.Date != nil {
		if t, ok := parseDate(strings.TrimSpace(p.Date.Start)); ok {
			return t.Format(dateLayout)
		}
	}
	return now.Format(dateLayout)
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{dateLayout, time.RFC3339Nano, "2006-01-02T15:04:05.000", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Tags 返回去空白、去重后的标签，保持原顺序；缺失时返回空切片。
func Tags(p domain.Property) []string {
	out := make([]string, 0, len(p.MultiSelect))
	seen := make(map[string]struct{}, len(p.MultiSelect))
	for _, o := range p.MultiSelect {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Author 兼容 rich_text / title / select / people 四种属性类型。
func Author(p domain.Property) string {
	var s string
	switch {
	case p.Select != nil:
		s = p.Select.Name
	case len(p.People) > 0:
		s = p.People[0].Name
	default:
		s = text(p)
	}
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return domain.DefaultAuthor
}

// CoverURL 按顺序解析封面：封面属性的托管文件 → 封面属性的外链 → 页面封面（托管文件，再外链）。
func CoverURL(page domain.Page, name string) string {
	if files := page.Properties[name].Files; len(files) > 0 {
		if u := strings.TrimSpace(files[0].URL()); u != "" {
			return u
		}
	}
	return strings.TrimSpace(page.Cover.URL())
}

// text 取文本类属性（rich_text 或 title）的纯文本。
func text(p domain.Property) string {
	if len(p.RichText) > 0 {
		return domain.PlainText(p.RichText)
	}
	return domain.PlainText(p.Title)
}
