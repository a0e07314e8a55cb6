package props

import (
	"reflect"
	"testing"
	"time"

	"github.com/John-Robertt/notionsync/internal/domain"
)

var now = time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)

func rt(s string) []domain.RichText { return []domain.RichText{{Type: "text", PlainText: s}} }

func fullPage() domain.Page {
	return domain.Page{
		ID: "1a2b3c4d-0000-0000-0000-000000000001",
		Properties: map[string]domain.Property{
			"Title":       {Type: "title", Title: []domain.RichText{{PlainText: "Hello "}, {PlainText: "World"}}},
			"PublishDate": {Type: "date", Date: &domain.DateValue{Start: "2024-01-02"}},
			"Tags":        {Type: "multi_select", MultiSelect: []domain.Option{{Name: "a"}, {Name: " b "}, {Name: "a"}, {Name: ""}}},
			"Summary":     {Type: "rich_text", RichText: rt("摘要")},
			"Author":      {Type: "rich_text", RichText: rt("Ann")},
			"Slug":        {Type: "rich_text", RichText: rt(" custom ")},
			"CoverImage":  {Type: "files", Files: []domain.FileRef{{Type: "file", FileURL: "https://s3.test/c.png"}}},
		},
	}
}

func TestExtract_AllFields(t *testing.T) {
	got := Extract(fullPage(), DefaultSchema(), now)
	want := domain.Metadata{
		PageID:   "1a2b3c4d-0000-0000-0000-000000000001",
		Title:    "Hello World",
		Date:     "2024-01-02",
		Tags:     []string{"a", "b"},
		Summary:  "摘要",
		Author:   "Ann",
		Slug:     "custom",
		CoverURL: "https://s3.test/c.png",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("元数据不一致：\n得到 %+v\n期望 %+v", got, want)
	}
}

func TestExtract_EmptyPageUsesDefaults(t *testing.T) {
	got := Extract(domain.Page{ID: "x"}, DefaultSchema(), now)

	if got.Title != domain.DefaultTitle {
		t.Fatalf("标题默认值不正确：%q", got.Title)
	}
	if got.Date != "2026-03-04" {
		t.Fatalf("日期应回退到处理当天：%q", got.Date)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("标签应为空切片：%#v", got.Tags)
	}
	if got.Summary != "" || got.Slug != "" || got.CoverURL != "" {
		t.Fatalf("可选字段应为空：%+v", got)
	}
	if got.Author != domain.DefaultAuthor {
		t.Fatalf("作者默认值不正确：%q", got.Author)
	}
}

func TestExtract_EachFieldMissingIndependently(t *testing.T) {
	fields := []string{"Title", "PublishDate", "Tags", "Summary", "Author", "Slug", "CoverImage"}
	for _, f := range fields {
		p := fullPage()
		delete(p.Properties, f)
		// 顺带验证 title 回退：删掉 Title 后不能从别的属性借到标题。
		got := Extract(p, DefaultSchema(), now)
		switch f {
		case "Title":
			if got.Title != domain.DefaultTitle {
				t.Fatalf("缺 Title 应得默认标题：%q", got.Title)
			}
		case "PublishDate":
			if got.Date != "2026-03-04" {
				t.Fatalf("缺日期应取当天：%q", got.Date)
			}
		case "Tags":
			if len(got.Tags) != 0 {
				t.Fatalf("缺标签应为空：%v", got.Tags)
			}
		case "Author":
			if got.Author != domain.DefaultAuthor {
				t.Fatalf("缺作者应取默认：%q", got.Author)
			}
		case "CoverImage":
			if got.CoverURL != "" {
				t.Fatalf("缺封面应为空：%q", got.CoverURL)
			}
		}
	}
}

func TestTitle_FallsBackToTitleTypedProperty(t *testing.T) {
	p := domain.Page{Properties: map[string]domain.Property{
		"Name": {Type: "title", Title: rt("  From Name  ")},
	}}
	if got := Title(p, "Title"); got != "From Name" {
		t.Fatalf("应回退到 title 类型属性：%q", got)
	}
	p.Properties["Title"] = domain.Property{Type: "title", Title: rt("   ")}
	if got := Title(p, "Title"); got != domain.DefaultTitle {
		t.Fatalf("空白标题应取默认值：%q", got)
	}
}

func TestDate_InvalidOrTimestamp(t *testing.T) {
	cases := []struct {
		start string
		want  string
	}{
		{"2024-02-30", "2026-03-04"},
		{"not a date", "2026-03-04"},
		{"", "2026-03-04"},
		{"2024-05-06T01:30:00.000+08:00", "2024-05-06"},
		{"2024-05-06T23:30:00Z", "2024-05-06"},
		{"2024-05-06T10:00", "2024-05-06"},
	}
	for _, c := range cases {
		got := Date(domain.Property{Type: "date", Date: &domain.DateValue{Start: c.start}}, now)
		if got != c.want {
			t.Fatalf("Date(%q)=%q，期望 %q", c.start, got, c.want)
		}
		if _, err := time.Parse("2006-01-02", got); err != nil {
			t.Fatalf("结果不是合法日期：%q", got)
		}
	}
	// 类型不符（例如被改成了文本属性）同样回退。
	if got := Date(domain.Property{Type: "rich_text", RichText: rt("2024-01-01")}, now); got != "2026-03-04" {
		t.Fatalf("非 date 属性应回退：%q", got)
	}
}

func TestAuthor_PropertyKinds(t *testing.T) {
	cases := []struct {
		name string
		p    domain.Property
		want string
	}{
		{"select", domain.Property{Type: "select", Select: &domain.Option{Name: "Bob"}}, "Bob"},
		{"people", domain.Property{Type: "people", People: []domain.Person{{Name: "Cat"}, {Name: "Dan"}}}, "Cat"},
		{"title", domain.Property{Type: "title", Title: rt("Eve")}, "Eve"},
		{"empty select", domain.Property{Type: "select", Select: &domain.Option{Name: " "}}, domain.DefaultAuthor},
	}
	for _, c := range cases {
		if got := Author(c.p); got != c.want {
			t.Fatalf("%s：得到 %q，期望 %q", c.name, got, c.want)
		}
	}
}

func TestCoverURL_ResolutionOrder(t *testing.T) {
	page := domain.Page{
		Properties: map[string]domain.Property{
			"CoverImage": {Type: "files", Files: []domain.FileRef{{Type: "external", ExternalURL: "https://ext.test/prop.png"}}},
		},
		Cover: &domain.FileRef{Type: "file", FileURL: "https://s3.test/page.png", ExternalURL: "https://ext.test/page.png"},
	}
	if got := CoverURL(page, "CoverImage"); got != "https://ext.test/prop.png" {
		t.Fatalf("封面属性外链应优先于页面封面：%q", got)
	}

	delete(page.Properties, "CoverImage")
	if got := CoverURL(page, "CoverImage"); got != "https://s3.test/page.png" {
		t.Fatalf("应回退到页面封面托管文件：%q", got)
	}

	page.Cover.FileURL = ""
	if got := CoverURL(page, "CoverImage"); got != "https://ext.test/page.png" {
		t.Fatalf("应回退到页面封面外链：%q", got)
	}

	page.Cover = nil
	if got := CoverURL(page, "CoverImage"); got != "" {
		t.Fatalf("无任何封面应为空：%q", got)
	}
}
