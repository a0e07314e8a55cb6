package mdconv

import (
	"strings"
	"testing"

	"github.com/John-Robertt/notionsync/internal/domain"
)

func txt(s string) []domain.RichText { return []domain.RichText{{Type: "text", PlainText: s}} }

func blk(typ, s string, children ...domain.Block) domain.Block {
	return domain.Block{Type: typ, RichText: txt(s), Children: children}
}

func TestConvert_SiblingsAndHeadings(t *testing.T) {
	got := Convert([]domain.Block{
		blk(domain.BlockHeading1, "Title"),
		blk(domain.BlockParagraph, "first"),
		blk(domain.BlockHeading3, "Sub"),
		{Type: domain.BlockDivider},
		blk(domain.BlockParagraph, "last"),
	})
	want := "# Title\n\nfirst\n\n### Sub\n\n---\n\nlast\n"
	if got != want {
		t.Fatalf("输出不一致：\n得到 %q\n期望 %q", got, want)
	}
}

func TestConvert_ListsAreTightAndRenumbered(t *testing.T) {
	got := Convert([]domain.Block{
		blk(domain.BlockNumberedListItem, "one"),
		blk(domain.BlockNumberedListItem, "two", blk(domain.BlockBulletedListItem, "nested")),
		blk(domain.BlockParagraph, "break"),
		blk(domain.BlockNumberedListItem, "again"),
		{Type: domain.BlockToDo, RichText: txt("done"), Checked: true},
		{Type: domain.BlockToDo, RichText: txt("todo")},
	})
	want := "1. one\n2. two\n    - nested\n\nbreak\n\n1. again\n\n- [x] done\n- [ ] todo\n"
	if got != want {
		t.Fatalf("输出不一致：\n得到 %q\n期望 %q", got, want)
	}
}

func TestConvert_QuoteCalloutToggle(t *testing.T) {
	got := Convert([]domain.Block{
		blk(domain.BlockQuote, "said", blk(domain.BlockParagraph, "more")),
		{Type: domain.BlockCallout, RichText: txt("note"), Emoji: "💡"},
		blk(domain.BlockToggle, "click", blk(domain.BlockParagraph, "hidden")),
	})
	want := "> said\n>\n> more\n\n> 💡 note\n\n<details>\n<summary>click</summary>\n\nhidden\n\n</details>\n"
	if got != want {
		t.Fatalf("输出不一致：\n得到 %q\n期望 %q", got, want)
	}
}

func TestConvert_CodeImageMediaEquation(t *testing.T) {
	got := Convert([]domain.Block{
		{Type: domain.BlockCode, RichText: txt("fmt.Println(1)"), Language: "Go"},
		{Type: domain.BlockCode, RichText: txt("x ``` y"), Language: "plain text"},
		{Type: domain.BlockImage, Caption: txt("a [cat]"), File: &domain.FileRef{Type: "file", FileURL: "https://s3.test/a.png?sig=1"}},
		{Type: domain.BlockImage, File: &domain.FileRef{Type: "external", ExternalURL: "https://ext.test/b (1).png"}},
		{Type: domain.BlockPDF, File: &domain.FileRef{Type: "file", Name: "doc.pdf", FileURL: "https://s3.test/doc.pdf"}},
		{Type: domain.BlockBookmark, URL: "https://go.dev"},
		{Type: domain.BlockEquation, Expression: "e=mc^2"},
	})
	want := strings.Join([]string{
		"```go\nfmt.Println(1)\n```",
		"````text\nx ``` y\n````",
		"![a \\[cat\\]](https://s3.test/a.png?sig=1)",
		"![](<https://ext.test/b (1).png>)",
		"[doc.pdf](https://s3.test/doc.pdf)",
		"[https://go.dev](https://go.dev)",
		"$$\ne=mc^2\n$$",
	}, "\n\n") + "\n"
	if got != want {
		t.Fatalf("输出不一致：\n得到 %q\n期望 %q", got, want)
	}
}

func TestConvert_Table(t *testing.T) {
	row := func(cells ...string) domain.Block {
		b := domain.Block{Type: domain.BlockTableRow}
		for _, c := range cells {
			b.Cells = append(b.Cells, txt(c))
		}
		return b
	}
	got := Convert([]domain.Block{{
		Type:            domain.BlockTable,
		HasColumnHeader: true,
		Children:        []domain.Block{row("k", "v"), row("a|b", "1"), row("only")},
	}})
	want := "| k | v |\n| --- | --- |\n| a\\|b | 1 |\n| only |  |\n"
	if got != want {
		t.Fatalf("输出不一致：\n得到 %q\n期望 %q", got, want)
	}
}

func TestConvert_TableWithoutColumnHeader(t *testing.T) {
	row := func(cells ...string) domain.Block {
		b := domain.Block{Type: domain.BlockTableRow}
		for _, c := range cells {
			b.Cells = append(b.Cells, txt(c))
		}
		return b
	}
	got := Convert([]domain.Block{{
		Type:     domain.BlockTable,
		Children: []domain.Block{row("a", "1"), row("b", "2")},
	}})
	want := "|  |  |\n| --- | --- |\n| a | 1 |\n| b | 2 |\n"
	if got != want {
		t.Fatalf("无列标题时首行不应成为表头：\n得到 %q\n期望 %q", got, want)
	}
}

func TestConvert_UnsupportedBlockDegrades(t *testing.T) {
	got := Convert([]domain.Block{
		blk(domain.BlockParagraph, "before"),
		blk("ai_block", "exotic text"),
		{Type: "unsupported"},
		{Type: domain.BlockTableOfContents},
		{Type: domain.BlockColumnList, Children: []domain.Block{
			{Type: domain.BlockColumn, Children: []domain.Block{blk(domain.BlockParagraph, "left")}},
			{Type: domain.BlockColumn, Children: []domain.Block{blk(domain.BlockParagraph, "right")}},
		}},
		{Type: domain.BlockChildPage, Title: "Sub page"},
		blk(domain.BlockParagraph, "after"),
	})
	want := "before\n\nexotic text\n\nleft\n\nright\n\nSub page\n\nafter\n"
	if got != want {
		t.Fatalf("输出不一致：\n得到 %q\n期望 %q", got, want)
	}
}

func TestConvert_Empty(t *testing.T) {
	if got := Convert(nil); got != "" {
		t.Fatalf("空块树应输出空串：%q", got)
	}
}

func TestInline_Annotations(t *testing.T) {
	got := Inline([]domain.RichText{
		{Type: "text", PlainText: "plain "},
		{Type: "text", PlainText: "bold ", Annotations: domain.Annotations{Bold: true}},
		{Type: "text", PlainText: "both", Annotations: domain.Annotations{Bold: true, Italic: true}},
		{Type: "text", PlainText: " "},
		{Type: "text", PlainText: "gone", Annotations: domain.Annotations{Strikethrough: true}},
		{Type: "text", PlainText: " "},
		{Type: "text", PlainText: "a`b", Annotations: domain.Annotations{Code: true}},
		{Type: "text", PlainText: " link", Href: "https://go.dev"},
		{Type: "equation", PlainText: "x^2", Expression: "x^2"},
		{Type: "text", PlainText: "   ", Annotations: domain.Annotations{Bold: true}},
	})
	want := "plain **bold** ***both*** ~~gone~~ `` a`b `` [link](https://go.dev)$x^2$   "
	if got != want {
		t.Fatalf("输出不一致：\n得到 %q\n期望 %q", got, want)
	}
}
