// Package run 编排一次同步：查询已发布文档 → 逐篇处理 → 汇总报告。
package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/John-Robertt/notionsync/internal/app"
	"github.com/John-Robertt/notionsync/internal/domain"
	"github.com/John-Robertt/notionsync/internal/notion"
)

// Source 返回本次要同步的页面（已按发布日期倒序）。
type Source interface {
	QueryPublished(ctx context.Context) ([]domain.Page, error)
}

// Assembler 处理单篇文档；失败必须以 ItemResult 表达，而不是 panic 或 error。
type Assembler interface {
	Assemble(ctx context.Context, page domain.Page) domain.ItemResult
}

// Options 是一次运行的上下文信息（写入报告，并交给 Observer 展示）。
type Options struct {
	DatabaseID string
	ContentDir string
	MediaDir   string
	Logger     *slog.Logger
	// Now 为空时取 time.Now（测试可固定时钟）。
	Now func() time.Time
}

// QueryError 表示初始查询失败：此时还没有任何文档可处理，整次运行失败。
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("查询已发布文档失败：%s", notion.Describe(e.Err))
}

func (e *QueryError) Unwrap() error { return e.Err }

// Execute 执行一次同步并返回对外稳定的 RunReport。
//
// 只有初始查询失败是致命的（返回 *QueryError）；单篇失败被记录在报告中，不中断后续文档。
// 文档按查询顺序串行处理，报告条目保持该顺序。
func Execute(ctx context.Context, opts Options, src Source, asm Assembler, obs Observer) (domain.RunReport, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	rr := domain.RunReport{
		DatabaseID: opts.DatabaseID,
		ContentDir: opts.ContentDir,
		MediaDir:   opts.MediaDir,
		StartedAt:  now(),
		Items:      []domain.ItemResult{},
	}
	obs.OnStart(opts)

	queryStarted := time.Now()
	pages, err := src.QueryPublished(ctx)
	if err != nil {
		rr.FinishedAt = now()
		rr.Finalize()
		return rr, &QueryError{Err: err}
	}
	obs.OnPhaseDone("query", map[string]any{"pages": len(pages)}, time.Since(queryStarted))
	obs.OnPhaseDone("sync", map[string]any{"total": len(pages)}, 0)

	rr.Items = make([]domain.ItemResult, 0, len(pages))
	for i, p := range pages {
		oneStarted := time.Now()
		res := asm.Assemble(ctx, p)
		if res.Status == domain.StatusFailed {
			log.Warn("文档同步失败", "page", res.PageID, "title", res.Title, "code", res.ErrorCode, "err", res.ErrorMsg)
		}
		rr.Items = append(rr.Items, res)
		obs.OnItemDone(i+1, len(pages), res, time.Since(oneStarted))
	}

	if cs := app.MarkCollisions(rr.Items); len(cs) > 0 {
		for _, c := range cs {
			log.Warn("多篇文档写入同一文件，后写者覆盖先写者", "file", c.File, "count", len(c.Idx))
		}
		obs.OnPhaseDone("collisions", map[string]any{"files": len(cs)}, 0)
	}

	rr.FinishedAt = now()
	rr.Finalize()
	return rr, nil
}
