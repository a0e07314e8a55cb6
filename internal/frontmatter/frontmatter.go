// Package frontmatter 生成并校验 markdown 产物头部的 YAML 元数据块。
package frontmatter

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	adrg "github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/notionsync/internal/domain"
)

const delimiter = "---"

// Header 是产物头部的字段集合，字段顺序即输出顺序。
type Header struct {
	Title   string   `yaml:"title"`
	Date    string   `yaml:"date"`
	Tags    []string `yaml:"tags"`
	Draft   bool     `yaml:"draft"`
	Summary string   `yaml:"summary"`
	Images  []string `yaml:"images,omitempty"`
	Authors []string `yaml:"authors"`
}

// HeaderFor 由规范化元数据与封面本地路径构造 Header。coverPath 为空时不输出 images。
func HeaderFor(meta domain.Metadata, coverPath string) Header {
	h := Header{
		Title:   singleLine(meta.Title),
		Date:    meta.Date,
		Tags:    append([]string{}, meta.Tags...),
		Draft:   false,
		Summary: meta.Summary,
		Authors: []string{meta.Author},
	}
	if coverPath != "" {
		h.Images = []string{coverPath}
	}
	return h
}

// Generate 渲染头部块（含首尾 "---"，不含结尾换行）：
//
//	---
//	title: 'O''Brien''s Guide'
//	date: '2024-01-02'
//	tags: ['a', 'b']
//	draft: false
//	summary: ''
//	authors: ['default']
//	---
//
// 字符串一律单引号，内部的 ' 按 YAML 规则写作 ''。
func Generate(meta domain.Metadata, coverPath string) (string, error) {
	return Render(HeaderFor(meta, coverPath))
}

// Render 把 Header 渲染为头部块。
func Render(h Header) (string, error) {
	sub := newAstral(h)
	quoted := func(s string) *yaml.Node { return quotedNode(sub.hide(s)) }
	list := func(items []string) *yaml.Node {
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, it := range items {
			n.Content = append(n.Content, quoted(it))
		}
		return n
	}

	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key string, v *yaml.Node) {
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, v)
	}

	add("title", quoted(h.Title))
	add("date", quoted(h.Date))
	add("tags", list(h.Tags))
	add("draft", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(h.Draft)})
	add("summary", quoted(h.Summary))
	if len(h.Images) > 0 {
		add("images", list(h.Images))
	}
	add("authors", list(h.Authors))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{m}}); err != nil {
		return "", fmt.Errorf("渲染 frontmatter 失败：%w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("渲染 frontmatter 失败：%w", err)
	}
	return delimiter + "\n" + sub.restore(buf.String()) + delimiter, nil
}

// Parse 解析一份完整产物（头部 + 正文），返回头部与正文。
// 没有头部块时报错。
func Parse(doc string) (Header, string, error) {
	var h Header
	body, err := adrg.MustParse(strings.NewReader(doc), &h)
	if err != nil {
		return Header{}, "", fmt.Errorf("解析 frontmatter 失败：%w", err)
	}
	return h, string(body), nil
}

// Verify 重新解析 doc，确认头部与 want 完全一致。
//
// 标题或摘要里的引号、冒号等若破坏了字段边界，这里会发现并返回错误，
// 调用方据此拒绝落盘，而不是写出一份下游无法解析的文件。
func Verify(doc string, want Header) error {
	got, _, err := Parse(doc)
	if err != nil {
		return err
	}
	if got.Tags == nil {
		got.Tags = []string{}
	}
	if want.Tags == nil {
		want.Tags = []string{}
	}
	if !reflect.DeepEqual(got, want) {
		return fmt.Errorf("frontmatter 回读不一致：得到 %+v，期望 %+v", got, want)
	}
	return nil
}

func quotedNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.SingleQuotedStyle, Value: s}
}

// astral 在编码期间把 BMP 之外的字符（emoji 等）换成私用区占位符。
// yaml.v3 认为这些字符不可打印，会把整个标量改成双引号并写成 \U 转义；
// 私用区字符可打印，标量因此保持单引号，编码后再换回原字符。
type astral struct {
	to   map[rune]rune
	back *strings.Replacer
}

const (
	puaFirst = 0xE000
	puaLast  = 0xF8FF
)

func newAstral(h Header) *astral {
	fields := append([]string{h.Title, h.Date, h.Summary}, h.Tags...)
	fields = append(fields, h.Images...)
	fields = append(fields, h.Authors...)

	used := map[rune]bool{}
	var wide []rune
	for _, f := range fields {
		for _, r := range f {
			if r > 0xFFFF && !used[r] {
				wide = append(wide, r)
			}
			used[r] = true
		}
	}

	a := &astral{to: map[rune]rune{}}
	var pairs []string
	next := rune(puaFirst)
	for _, r := range wide {
		for next <= puaLast && used[next] {
			next++
		}
		if next > puaLast {
			// 占位符用尽时剩余字符交给 yaml 转义，结果仍可正确解析。
			break
		}
		a.to[r] = next
		pairs = append(pairs, string(next), string(r))
		next++
	}
	a.back = strings.NewReplacer(pairs...)
	return a
}

func (a *astral) hide(s string) string {
	if len(a.to) == 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if p, ok := a.to[r]; ok {
			return p
		}
		return r
	}, s)
}

func (a *astral) restore(s string) string {
	if len(a.to) == 0 {
		return s
	}
	return a.back.Replace(s)
}

// 标题只占一行；换行会让单引号标量退化为双引号或折行。
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
