package domain

import "time"

// Page 是内容源中一篇已发布文档（只读）。
//
// 约束：
// - ID 是内容源的唯一主键（Notion 页面 ID，带 '-' 的 UUID 形态）
// - Properties 按属性名索引；字段缺失/类型不符都是合法输入，由 props 包兜底
// - 块树不在 Page 中携带：按需通过 Source.Blocks 拉取（单篇失败不影响其它）
type Page struct {
	ID          string
	CreatedTime time.Time
	Properties  map[string]Property
	Cover       *FileRef
}

// Property 是一个带类型的页面属性值。只保留同步需要的几种类型的载荷。
type Property struct {
	Type string

	Title       []RichText
	RichText    []RichText
	Date        *DateValue
	Select      *Option
	MultiSelect []Option
	Files       []FileRef
	People      []Person
}

type DateValue struct {
	Start string // 原样保留（可能是 "2024-01-02" 或 RFC3339）
	End   string
}

type Option struct {
	Name string
}

type Person struct {
	Name string
}

// FileRef 描述一个文件引用：Notion 托管文件（file）或外部链接（external）。
type FileRef struct {
	Type        string // "file" | "external"
	Name        string
	FileURL     string
	ExternalURL string
}

// URL 按“托管文件优先、外链其次”返回可下载地址。
func (f *FileRef) URL() string {
	if f == nil {
		return ""
	}
	if f.FileURL != "" {
		return f.FileURL
	}
	return f.ExternalURL
}

// RichText 是一段带格式的文本片段。
type RichText struct {
	Type        string // "text" | "mention" | "equation"
	PlainText   string
	Href        string
	Expression  string // Type=="equation" 时有效
	Annotations Annotations
}

type Annotations struct {
	Bold          bool
	Italic        bool
	Strikethrough bool
	Underline     bool
	Code          bool
}

// PlainText 拼接所有片段的纯文本。
func PlainText(rts []RichText) string {
	switch len(rts) {
	case 0:
		return ""
	case 1:
		return rts[0].PlainText
	}
	n := 0
	for i := range rts {
		n += len(rts[i].PlainText)
	}
	b := make([]byte, 0, n)
	for i := range rts {
		b = append(b, rts[i].PlainText...)
	}
	return string(b)
}
