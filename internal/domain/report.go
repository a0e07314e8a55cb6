package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const (
	ErrCodeFetchFailed   = "fetch_failed"   // 拉取块树失败
	ErrCodeConvertFailed = "convert_failed" // 块树转换/正文处理失败
	ErrCodeRenderFailed  = "render_failed"  // frontmatter 生成或校验失败
	ErrCodeIOFailed      = "io_failed"      // 落盘失败
	ErrCodePanic         = "panic"          // 单篇处理中的未预期 panic
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	DatabaseID string `json:"database_id"`
	ContentDir string `json:"content_dir"`
	MediaDir   string `json:"media_dir"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ItemResult 是单篇文档的同步结果。
type ItemResult struct {
	PageID string `json:"page_id"`
	Title  string `json:"title"`

	Status    string `json:"status"`
	File      string `json:"file"` // 成功时为产物文件名（不含目录）
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Images   ImageStats `json:"images"`
	Warnings []string   `json:"warnings"`
}

type ImageStats struct {
	Localized int `json:"localized"`
	Failed    int `json:"failed"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 items 计算得出
//
// items 保持处理顺序（即查询的发布日期倒序），不做重排。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	s := ReportSummary{Total: len(r.Items)}
	for i := range r.Items {
		if r.Items[i].Warnings == nil {
			r.Items[i].Warnings = []string{}
		}
		switch r.Items[i].Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// Failures 返回失败条目（保持顺序）。
func (r RunReport) Failures() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Status == StatusFailed {
			out = append(out, it)
		}
	}
	return out
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
