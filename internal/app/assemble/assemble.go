// Package assemble 负责单篇文档：元数据 → 正文 → 图片本地化 → 封面 → frontmatter → 落盘。
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/John-Robertt/notionsync/internal/domain"
	"github.com/John-Robertt/notionsync/internal/frontmatter"
	"github.com/John-Robertt/notionsync/internal/infra/fsx"
	"github.com/John-Robertt/notionsync/internal/mdconv"
	"github.com/John-Robertt/notionsync/internal/media"
	"github.com/John-Robertt/notionsync/internal/notion"
	"github.com/John-Robertt/notionsync/internal/props"
	"github.com/John-Robertt/notionsync/internal/slug"
)

// BlockSource 拉取页面块树（*notion.Client 实现它）。
type BlockSource interface {
	Blocks(ctx context.Context, pageID string) ([]domain.Block, error)
}

// BodyRewriter 本地化正文中的图片（*media.Rewriter 实现它）。
type BodyRewriter interface {
	RewriteWithStats(ctx context.Context, markdown, docID string) (string, media.Stats)
}

// Assembler 处理单篇文档。零值不可用：Source/Rewriter/Cover/ContentDir 必填。
type Assembler struct {
	Source   BlockSource
	Rewriter BodyRewriter
	Cover    media.Fetcher

	ContentDir string
	Ext        string
	Schema     props.Schema

	// Now 用于日期兜底；为空时取 time.Now。
	Now    func() time.Time
	Logger *slog.Logger
}

// stepError 记录失败发生在哪一步，用于映射 error_code。
type stepError struct {
	code string
	err  error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// Assemble 处理一篇文档并返回其结果。任何错误（含 panic）都在这里收敛为失败条目，不向上传播。
func (a *Assembler) Assemble(ctx context.Context, page domain.Page) (item domain.ItemResult) {
	item = domain.ItemResult{
		PageID:   page.ID,
		Title:    domain.DefaultTitle,
		Status:   domain.StatusFailed, // 成功时覆盖
		Warnings: []string{},
	}

	stage := "extract"
	defer func() {
		if r := recover(); r != nil {
			item.Status = domain.StatusFailed
			item.File = ""
			item.ErrorCode = domain.ErrCodePanic
			if stage == "convert" {
				item.ErrorCode = domain.ErrCodeConvertFailed
			}
			item.ErrorMsg = fmt.Sprintf("%s 阶段发生 panic：%v", stage, r)
			a.logger().Error("文档处理 panic", "page", page.ID, "title", item.Title, "stage", stage, "panic", r)
		}
	}()

	meta := props.Extract(page, a.Schema, a.now())
	item.Title = meta.Title

	stage = "fetch"
	blocks, err := a.Source.Blocks(ctx, page.ID)
	if err != nil {
		return fail(item, &stepError{code: domain.ErrCodeFetchFailed, err: fmt.Errorf("拉取块树失败：%s", notion.Describe(err))})
	}

	stage = "convert"
	body := mdconv.Convert(blocks)

	stage = "media"
	body, st := a.Rewriter.RewriteWithStats(ctx, body, page.ID)
	item.Images = domain.ImageStats{Localized: st.Localized, Failed: st.Failed}
	if st.Failed > 0 {
		item.Warnings = append(item.Warnings, fmt.Sprintf("%d 张图片本地化失败，保留远程地址", st.Failed))
	}

	stage = "cover"
	coverPath := a.localizeCover(ctx, page.ID, meta.CoverURL, &item)

	stage = "render"
	doc, err := render(meta, coverPath, body)
	if err != nil {
		return fail(item, err)
	}

	stage = "write"
	name := slug.Resolve(meta.Slug, meta.Title, page.ID) + a.Ext
	if err := fsx.WriteFileAtomicReplace(a.ContentDir, name, []byte(doc)); err != nil {
		return fail(item, &stepError{code: domain.ErrCodeIOFailed, err: fmt.Errorf("写入 %s 失败：%w", name, err)})
	}

	item.Status = domain.StatusSucceeded
	item.File = name
	return item
}

// localizeCover 下载封面；失败只记告警（没有封面的文章仍然有效）。
func (a *Assembler) localizeCover(ctx context.Context, pageID, coverURL string, item *domain.ItemResult) string {
	if coverURL == "" || a.Cover == nil {
		return ""
	}
	p, err := a.Cover.Localize(ctx, coverURL, media.CoverFileName(pageID, coverURL))
	if err != nil {
		a.logger().Warn("封面下载失败，frontmatter 不含 images", "page", pageID, "err", err)
		item.Warnings = append(item.Warnings, fmt.Sprintf("封面下载失败：%v", err))
		return ""
	}
	return p
}

// render 生成完整产物：frontmatter + 空行 + 正文，并回读校验头部。
func render(meta domain.Metadata, coverPath, body string) (string, error) {
	h := frontmatter.HeaderFor(meta, coverPath)
	fm, err := frontmatter.Render(h)
	if err != nil {
		return "", &stepError{code: domain.ErrCodeRenderFailed, err: err}
	}
	doc := fm + "\n"
	if body != "" {
		doc += "\n" + body
	}
	if err := frontmatter.Verify(doc, h); err != nil {
		return "", &stepError{code: domain.ErrCodeRenderFailed, err: err}
	}
	return doc, nil
}

func fail(item domain.ItemResult, err error) domain.ItemResult {
	item.Status = domain.StatusFailed
	item.File = ""
	item.ErrorCode = domain.ErrCodeConvertFailed
	var se *stepError
	if errors.As(err, &se) {
		item.ErrorCode = se.code
	}
	if fsx.IsPathTypeConflict(err) {
		item.ErrorCode = domain.ErrCodeIOFailed
	}
	item.ErrorMsg = err.Error()
	return item
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
