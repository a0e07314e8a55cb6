package slug

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMake(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  --Hello,   World!!--  ", "hello-world"},
		{"Go 1.22 发布说明", "go-1-22-发布说明"},
		{"O'Brien's Guide", "o-brien-s-guide"},
		{"!!!", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := Make(c.in); got != c.want {
			t.Fatalf("Make(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestMake_CapsLengthAndRetrims(t *testing.T) {
	// 第 100 个字符恰好落在分隔符上：截断后不应留下尾部 '-'。
	in := strings.Repeat("a", 99) + " tail"
	got := Make(in)
	if utf8.RuneCountInString(got) > MaxRunes {
		t.Fatalf("slug 超长：%d", utf8.RuneCountInString(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Fatalf("截断后不应以 '-' 结尾：%q", got)
	}

	han := strings.Repeat("中", 150)
	if n := utf8.RuneCountInString(Make(han)); n != MaxRunes {
		t.Fatalf("汉字按字符截断到 %d，实际 %d", MaxRunes, n)
	}
}

func TestCustom(t *testing.T) {
	if got := Custom("  my-first-post "); got != "my-first-post" {
		t.Fatalf("合法 slug 应原样使用：%q", got)
	}
	if got := Custom(""); got != "" {
		t.Fatalf("空值应返回空串：%q", got)
	}
	if got := Custom("笔记 第一篇"); got != "笔记-第一篇" {
		t.Fatalf("含汉字的自定义 slug 应保留汉字：%q", got)
	}
	got := Custom("../etc/passwd")
	if strings.Contains(got, "/") || strings.HasPrefix(got, ".") || got == "" {
		t.Fatalf("不安全的自定义 slug 未被规范化：%q", got)
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve("custom", "Hello World", "abc"); got != "custom" {
		t.Fatalf("自定义 slug 应优先：%q", got)
	}
	if got := Resolve("", "Hello World", "abc"); got != "hello-world" {
		t.Fatalf("应回退到标题：%q", got)
	}
	if got := Resolve("", "???", "1A2B-3C4D"); got != "1a2b3c4d" {
		t.Fatalf("应回退到页面 ID：%q", got)
	}
}
