// Package mdconv 把文档块树序列化为 markdown。
//
// Convert 对任意块树都不会失败：未识别的块类型降级为其纯文本（没有文本则忽略），
// 这样一个特殊块不会拖垮整篇文档。
package mdconv

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/notionsync/internal/domain"
)

const indentUnit = "    "

// Convert 渲染块树。兄弟块之间空一行；连续的同类列表项之间不空行（紧凑列表）。
// 结果为空或以单个 '\n' 结尾。
func Convert(blocks []domain.Block) string {
	s := renderBlocks(blocks)
	if s == "" {
		return ""
	}
	return s + "\n"
}

func renderBlocks(blocks []domain.Block) string {
	var b strings.Builder
	prev := ""
	num := 0
	for _, blk := range blocks {
		if blk.Type == domain.BlockNumberedListItem {
			if prev == domain.BlockNumberedListItem {
				num++
			} else {
				num = 1
			}
		}
		s := renderBlock(blk, num)
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			if prev == blk.Type && isListItem(blk.Type) {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(s)
		prev = blk.Type
	}
	return b.String()
}

func isListItem(t string) bool {
	return t == domain.BlockBulletedListItem || t == domain.BlockNumberedListItem || t == domain.BlockToDo
}

func renderBlock(blk domain.Block, num int) string {
	switch blk.Type {
	case domain.BlockParagraph:
		return join(Inline(blk.RichText), renderBlocks(blk.Children))
	case domain.BlockHeading1, domain.BlockHeading2, domain.BlockHeading3:
		level := int(blk.Type[len(blk.Type)-1] - '0')
		// 可折叠标题的子块跟在标题后面，不缩进。
		return join(strings.Repeat("#", level)+" "+Inline(blk.RichText), renderBlocks(blk.Children))
	case domain.BlockBulletedListItem:
		return listItem("- ", blk)
	case domain.BlockNumberedListItem:
		return listItem(fmt.Sprintf("%d. ", num), blk)
	case domain.BlockToDo:
		box := "- [ ] "
		if blk.Checked {
			box = "- [x] "
		}
		return listItem(box, blk)
	case domain.BlockToggle:
		inner := renderBlocks(blk.Children)
		s := "<details>\n<summary>" + Inline(blk.RichText) + "</summary>\n\n"
		if inner != "" {
			s += inner + "\n\n"
		}
		return s + "</details>"
	case domain.BlockQuote:
		return quote(join(Inline(blk.RichText), renderBlocks(blk.Children)))
	case domain.BlockCallout:
		head := Inline(blk.RichText)
		if blk.Emoji != "" {
			head = blk.Emoji + " " + head
		}
		return quote(join(head, renderBlocks(blk.Children)))
	case domain.BlockCode:
		return codeFence(domain.PlainText(blk.RichText), blk.Language)
	case domain.BlockImage:
		u := blk.File.URL()
		if u == "" {
			return ""
		}
		return "![" + escapeLabel(domain.PlainText(blk.Caption)) + "](" + destination(u) + ")"
	case domain.BlockVideo, domain.BlockAudio, domain.BlockFile, domain.BlockPDF:
		u := blk.File.URL()
		if u == "" {
			return ""
		}
		label := domain.PlainText(blk.Caption)
		if label == "" && blk.File != nil {
			label = blk.File.Name
		}
		if label == "" {
			label = blk.Type
		}
		return "[" + escapeLabel(label) + "](" + destination(u) + ")"
	case domain.BlockBookmark, domain.BlockEmbed, domain.BlockLinkPreview:
		if blk.URL == "" {
			return ""
		}
		label := domain.PlainText(blk.Caption)
		if label == "" {
			label = blk.URL
		}
		return "[" + escapeLabel(label) + "](" + destination(blk.URL) + ")"
	case domain.BlockEquation:
		if strings.TrimSpace(blk.Expression) == "" {
			return ""
		}
		return "$$\n" + blk.Expression + "\n$$"
	case domain.BlockDivider:
		return "---"
	case domain.BlockTable:
		return table(blk)
	case domain.BlockTableRow:
		return "| " + strings.Join(cells(blk.Cells), " | ") + " |"
	case domain.BlockColumnList, domain.BlockColumn, domain.BlockSyncedBlock:
		return renderBlocks(blk.Children)
	case domain.BlockChildPage, domain.BlockChildDatabase:
		return blk.Title
	case domain.BlockTableOfContents, domain.BlockBreadcrumb:
		return ""
	default:
		return join(domain.PlainText(blk.RichText), renderBlocks(blk.Children))
	}
}

func listItem(marker string, blk domain.Block) string {
	s := marker + Inline(blk.RichText)
	if inner := renderBlocks(blk.Children); inner != "" {
		s += "\n" + indent(inner, indentUnit)
	}
	return s
}

func join(head, body string) string {
	switch {
	case body == "":
		return head
	case head == "":
		return body
	default:
		return head + "\n\n" + body
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + l
		}
	}
	return strings.Join(lines, "\n")
}

func codeFence(body, lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "plain text" {
		lang = "text"
	}
	lang = strings.ReplaceAll(lang, " ", "-")
	// 代码里出现 ``` 时加长围栏。
	fence := "```"
	for strings.Contains(body, fence) {
		fence += "`"
	}
	return fence + lang + "\n" + body + "\n" + fence
}

func table(blk domain.Block) string {
	var rows [][]string
	width := 0
	for _, r := range blk.Children {
		if r.Type != domain.BlockTableRow {
			continue
		}
		c := cells(r.Cells)
		if len(c) > width {
			width = len(c)
		}
		rows = append(rows, c)
	}
	if len(rows) == 0 || width == 0 {
		return ""
	}
	line := func(c []string) string {
		for len(c) < width {
			c = append(c, "")
		}
		return "| " + strings.Join(c, " | ") + " |"
	}
	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}
	// markdown 表格必须有表头：没有列标题时用空表头，首行仍属于正文。
	head, body := make([]string, width), rows
	if blk.HasColumnHeader {
		head, body = rows[0], rows[1:]
	}
	out := []string{line(head), line(sep)}
	for _, r := range body {
		out = append(out, line(r))
	}
	return strings.Join(out, "\n")
}

func cells(in [][]domain.RichText) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		s := Inline(c)
		s = strings.ReplaceAll(s, "|", `\|`)
		s = strings.ReplaceAll(s, "\n", "<br>")
		out = append(out, s)
	}
	return out
}

func escapeLabel(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`, "\n", " ").Replace(s)
}

// destination 在 URL 含空白或括号时使用 <...> 形式，其余原样输出（保证后续按原文替换）。
func destination(u string) string {
	if strings.ContainsAny(u, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(u) + ">"
	}
	return u
}
