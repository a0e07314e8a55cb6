package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SummaryAndUTC(t *testing.T) {
	r := RunReport{
		ContentDir: "/abs/data/blog",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{PageID: "b", Status: StatusSucceeded},
			{PageID: "a", Status: StatusFailed, ErrorCode: ErrCodeFetchFailed},
			{PageID: "c", Status: StatusSucceeded},
		},
	}

	r.Finalize()

	// items 保持处理顺序。
	if r.Items[0].PageID != "b" || r.Items[1].PageID != "a" || r.Items[2].PageID != "c" {
		t.Fatalf("items 顺序被改变：%+v", r.Items)
	}
	if r.Summary.Total != 3 || r.Summary.Succeeded != 2 || r.Summary.Failed != 1 {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}
	for _, it := range r.Items {
		if it.Warnings == nil {
			t.Fatalf("warnings 不应为 nil（JSON 需输出 []）：%+v", it)
		}
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"started_at":"2026-02-09T02:00:00Z"`)) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
	if !bytes.Contains(b, []byte(`"summary":{"total":3,"succeeded":2,"failed":1}`)) {
		t.Fatalf("summary JSON 不符合预期：%s", string(b))
	}

	if f := r.Failures(); len(f) != 1 || f[0].PageID != "a" {
		t.Fatalf("Failures 不正确：%+v", f)
	}
}

func TestRunReport_Finalize_Empty(t *testing.T) {
	var r RunReport
	r.Finalize()

	if r.Summary != (ReportSummary{}) {
		t.Fatalf("空报告 summary 应全为 0：%+v", r.Summary)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"items":[]`)) {
		t.Fatalf("空报告 items 应输出 []：%s", string(b))
	}
}

func TestPlainTextAndFileRefURL(t *testing.T) {
	got := PlainText([]RichText{{PlainText: "Hello "}, {PlainText: "World"}})
	if got != "Hello World" {
		t.Fatalf("PlainText 拼接错误：%q", got)
	}
	if PlainText(nil) != "" {
		t.Fatalf("空切片应返回空串")
	}

	var nilRef *FileRef
	if nilRef.URL() != "" {
		t.Fatalf("nil FileRef 应返回空 URL")
	}
	ref := &FileRef{FileURL: "https://s3.test/a.png", ExternalURL: "https://ext.test/b.png"}
	if ref.URL() != "https://s3.test/a.png" {
		t.Fatalf("应优先返回托管文件 URL：%q", ref.URL())
	}
	ref.FileURL = ""
	if ref.URL() != "https://ext.test/b.png" {
		t.Fatalf("应回退到外链 URL：%q", ref.URL())
	}
}
