package frontmatter

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/notionsync/internal/domain"
)

func TestGenerate_ExactLayoutWithoutCover(t *testing.T) {
	meta := domain.Metadata{
		Title:  "Hello World",
		Date:   "2024-01-02",
		Tags:   []string{"a", "b"},
		Author: domain.DefaultAuthor,
	}
	got, err := Generate(meta, "")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := strings.Join([]string{
		"---",
		"title: 'Hello World'",
		"date: '2024-01-02'",
		"tags: ['a', 'b']",
		"draft: false",
		"summary: ''",
		"authors: ['default']",
		"---",
	}, "\n")
	if got != want {
		t.Fatalf("输出不一致：\n得到：\n%s\n期望：\n%s", got, want)
	}
	if strings.Contains(got, "images") {
		t.Fatalf("无封面时不应输出 images 字段")
	}
}

func TestGenerate_WithCoverAndEmptyTags(t *testing.T) {
	meta := domain.Metadata{Title: "T", Date: "2024-01-02", Author: "Ann"}
	got, err := Generate(meta, "/static/images/notion/cover-x.jpg")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.Contains(got, "tags: []\n") {
		t.Fatalf("空标签应输出 []：\n%s", got)
	}
	if !strings.Contains(got, "summary: ''\nimages: ['/static/images/notion/cover-x.jpg']\nauthors: ['Ann']\n---") {
		t.Fatalf("images 应位于 summary 与 authors 之间：\n%s", got)
	}
}

func TestGenerate_EscapesSingleQuotes(t *testing.T) {
	meta := domain.Metadata{
		Title:   "O'Brien's Guide",
		Date:    "2024-01-02",
		Tags:    []string{"it's"},
		Summary: "a: b # not a comment",
		Author:  "D'Arcy",
	}
	got, err := Generate(meta, "")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.Contains(got, "title: 'O''Brien''s Guide'\n") {
		t.Fatalf("单引号未按 '' 转义：\n%s", got)
	}

	// 用两套解析器回读：yaml.v3 直接解析头部，adrg/frontmatter 解析整份文档。
	inner := strings.TrimSuffix(strings.TrimPrefix(got, "---\n"), "---")
	var h Header
	if err := yaml.Unmarshal([]byte(inner), &h); err != nil {
		t.Fatalf("yaml.v3 解析失败：%v", err)
	}
	if h.Title != meta.Title || h.Summary != meta.Summary || h.Authors[0] != meta.Author || h.Tags[0] != "it's" {
		t.Fatalf("字段回读不一致：%+v", h)
	}

	doc := got + "\n\n正文\n"
	if err := Verify(doc, HeaderFor(meta, "")); err != nil {
		t.Fatalf("Verify 不期望错误：%v", err)
	}
	_, body, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse 不期望错误：%v", err)
	}
	if strings.TrimSpace(body) != "正文" {
		t.Fatalf("正文不一致：%q", body)
	}
}

func TestGenerate_LongTitleStaysOnOneLine(t *testing.T) {
	title := strings.Repeat("long words here ", 20)
	got, err := Generate(domain.Metadata{Title: title, Date: "2024-01-02", Author: "a"}, "")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	lines := strings.Split(got, "\n")
	if !strings.HasPrefix(lines[1], "title: '") || !strings.HasSuffix(lines[1], "'") {
		t.Fatalf("长标题不应折行：%q", lines[1])
	}
}

func TestVerify_DetectsMismatch(t *testing.T) {
	doc := "---\ntitle: 'A'\ndate: '2024-01-02'\ntags: []\ndraft: false\nsummary: ''\nauthors: ['x']\n---\n\nbody\n"
	want := Header{Title: "B", Date: "2024-01-02", Authors: []string{"x"}}
	if err := Verify(doc, want); err == nil {
		t.Fatalf("标题不一致时应返回错误")
	}
	if _, _, err := Parse("no header"); err == nil {
		t.Fatalf("缺少头部时应返回错误")
	}
}

func TestGenerate_EmojiStaysLiteral(t *testing.T) {
	meta := domain.Metadata{
		Title:   "Ünïcode 中文 \U0001F389",
		Date:    "2024-01-02",
		Tags:    []string{"\U0001F680 launch", "it's"},
		Summary: "私用区 \uE000 与 \U0001F389 并存",
		Author:  "a",
	}
	got, err := Generate(meta, "")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for _, want := range []string{
		"title: 'Ünïcode 中文 \U0001F389'\n",
		"tags: ['\U0001F680 launch', 'it''s']\n",
		"summary: '私用区 \uE000 与 \U0001F389 并存'\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("emoji 应保持原样且用单引号：缺少 %q\n%s", want, got)
		}
	}
	if strings.Contains(got, `\U`) || strings.Contains(got, `"`) {
		t.Fatalf("不应出现双引号转义：\n%s", got)
	}
	if err := Verify(got+"\n\nbody\n", HeaderFor(meta, "")); err != nil {
		t.Fatalf("Verify 不期望错误：%v", err)
	}
}
