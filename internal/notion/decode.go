package notion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/John-Robertt/notionsync/internal/domain"
)

// 这里的 wire 结构只描述同步需要的字段，按 Notion API 的 JSON 形态解码。
// 客户端库的类型不向外泄漏：页面与块都先编码为 JSON，再解码为 domain 类型。

type wireRichText struct {
	Type      string `json:"type"`
	PlainText string `json:"plain_text"`
	Href      string `json:"href"`
	Equation  *struct {
		Expression string `json:"expression"`
	} `json:"equation"`
	Annotations struct {
		Bold          bool `json:"bold"`
		Italic        bool `json:"italic"`
		Strikethrough bool `json:"strikethrough"`
		Underline     bool `json:"underline"`
		Code          bool `json:"code"`
	} `json:"annotations"`
}

type wireFile struct {
	Type string `json:"type"`
	Name string `json:"name"`
	File *struct {
		URL string `json:"url"`
	} `json:"file"`
	External *struct {
		URL string `json:"url"`
	} `json:"external"`
}

type wireProperty struct {
	Type        string         `json:"type"`
	Title       []wireRichText `json:"title"`
	RichText    []wireRichText `json:"rich_text"`
	Date        *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"date"`
	Select *struct {
		Name string `json:"name"`
	} `json:"select"`
	MultiSelect []struct {
		Name string `json:"name"`
	} `json:"multi_select"`
	Files  []wireFile `json:"files"`
	People []struct {
		Name string `json:"name"`
	} `json:"people"`
}

type wirePage struct {
	ID          string                  `json:"id"`
	CreatedTime string                  `json:"created_time"`
	Cover       *wireFile               `json:"cover"`
	Properties  map[string]wireProperty `json:"properties"`
}

// wirePayload 是各类块载荷字段的并集；某个块类型只会用到其中一部分。
type wirePayload struct {
	RichText        []wireRichText   `json:"rich_text"`
	Caption         []wireRichText   `json:"caption"`
	Checked         bool             `json:"checked"`
	Language        string           `json:"language"`
	URL             string           `json:"url"`
	Expression      string           `json:"expression"`
	Title           string           `json:"title"`
	Cells           [][]wireRichText `json:"cells"`
	HasColumnHeader bool             `json:"has_column_header"`
	Icon            *struct {
		Emoji string `json:"emoji"`
	} `json:"icon"`

	// 文件类块（image/video/file/pdf/audio）把文件描述直接平铺在载荷里。
	Type     string `json:"type"`
	Name     string `json:"name"`
	File     *struct {
		URL string `json:"url"`
	} `json:"file"`
	External *struct {
		URL string `json:"url"`
	} `json:"external"`
}

type wireBlock struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`
}

// DecodePage 把一条 Notion page JSON 解码为 domain.Page。
func DecodePage(raw []byte) (domain.Page, error) {
	var w wirePage
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Page{}, fmt.Errorf("解码 page 失败：%w", err)
	}
	p := domain.Page{
		ID:         w.ID,
		Properties: make(map[string]domain.Property, len(w.Properties)),
		Cover:      fileRef(w.Cover),
	}
	if t, err := time.Parse(time.RFC3339, w.CreatedTime); err == nil {
		p.CreatedTime = t
	}
	for name, wp := range w.Properties {
		p.Properties[name] = property(wp)
	}
	return p, nil
}

// DecodeBlock 把一条 Notion block JSON 解码为 domain.Block（不含子块）。
//
// 载荷位于与 type 同名的字段下；未知类型只保留 type 与其中的 rich_text（用于降级）。
func DecodeBlock(raw []byte) (domain.Block, error) {
	var head wireBlock
	if err := json.Unmarshal(raw, &head); err != nil {
		return domain.Block{}, fmt.Errorf("解码 block 失败：%w", err)
	}
	b := domain.Block{ID: head.ID, Type: head.Type, HasChildren: head.HasChildren}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Block{}, fmt.Errorf("解码 block 失败：%w", err)
	}
	body, ok := fields[head.Type]
	if !ok || len(body) == 0 || string(body) == "null" {
		return b, nil
	}
	var pl wirePayload
	if err := json.Unmarshal(body, &pl); err != nil {
		// 载荷形态不符（例如未来新增的块类型）：降级为只有类型的空块。
		return b, nil
	}

	b.RichText = richText(pl.RichText)
	b.Caption = richText(pl.Caption)
	b.Checked = pl.Checked
	b.Language = pl.Language
	b.URL = pl.URL
	b.Expression = pl.Expression
	b.Title = pl.Title
	b.HasColumnHeader = pl.HasColumnHeader
	if pl.Icon != nil {
		b.Emoji = pl.Icon.Emoji
	}
	for _, c := range pl.Cells {
		b.Cells = append(b.Cells, richText(c))
	}
	if pl.File != nil || pl.External != nil {
		b.File = fileRef(&wireFile{Type: pl.Type, Name: pl.Name, File: pl.File, External: pl.External})
	}
	return b, nil
}

func property(w wireProperty) domain.Property {
	p := domain.Property{
		Type:     w.Type,
		Title:    richText(w.Title),
		RichText: richText(w.RichText),
	}
	if w.Date != nil {
		p.Date = &domain.DateValue{Start: w.Date.Start, End: w.Date.End}
	}
	if w.Select != nil {
		p.Select = &domain.Option{Name: w.Select.Name}
	}
	for _, o := range w.MultiSelect {
		p.MultiSelect = append(p.MultiSelect, domain.Option{Name: o.Name})
	}
	for i := range w.Files {
		if f := fileRef(&w.Files[i]); f != nil {
			p.Files = append(p.Files, *f)
		}
	}
	for _, u := range w.People {
		p.People = append(p.People, domain.Person{Name: u.Name})
	}
	return p
}

func fileRef(w *wireFile) *domain.FileRef {
	if w == nil {
		return nil
	}
	f := &domain.FileRef{Type: w.Type, Name: w.Name}
	if w.File != nil {
		f.FileURL = w.File.URL
	}
	if w.External != nil {
		f.ExternalURL = w.External.URL
	}
	if f.FileURL == "" && f.ExternalURL == "" {
		return nil
	}
	return f
}

func richText(in []wireRichText) []domain.RichText {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.RichText, 0, len(in))
	for _, w := range in {
		rt := domain.RichText{
			Type:      w.Type,
			PlainText: w.PlainText,
			Href:      w.Href,
			Annotations: domain.Annotations{
				Bold:          w.Annotations.Bold,
				Italic:        w.Annotations.Italic,
				Strikethrough: w.Annotations.Strikethrough,
				Underline:     w.Annotations.Underline,
				Code:          w.Annotations.Code,
			},
		}
		if w.Equation != nil {
			rt.Expression = w.Equation.Expression
		}
		out = append(out, rt)
	}
	return out
}
