package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/notionsync/internal/app/run"
	"github.com/John-Robertt/notionsync/internal/domain"
)

func TestProgressUI_ItemLines(t *testing.T) {
	var buf bytes.Buffer
	ui := newProgressUI(&buf)
	defer ui.Stop()

	ui.OnStart(run.Options{DatabaseID: "db1", ContentDir: "/tmp/blog", MediaDir: "/tmp/media"})
	ui.OnPhaseDone("query", map[string]any{"pages": 2}, time.Second)
	ui.OnPhaseDone("sync", map[string]any{"total": 2}, 0)
	ui.OnItemDone(1, 2, domain.ItemResult{
		Title: "Hello", Status: domain.StatusSucceeded, File: "hello.md",
		Images: domain.ImageStats{Localized: 1, Failed: 1}, Warnings: []string{"x"},
	}, 0)
	ui.OnItemDone(2, 2, domain.ItemResult{
		Title: "Broken", Status: domain.StatusFailed, ErrorCode: domain.ErrCodeFetchFailed, ErrorMsg: "HTTP 502",
	}, 0)

	out := buf.String()
	for _, want := range []string{
		"database: db1",
		"查询: pages=2",
		"[1/2] OK Hello → hello.md images=1/2 warnings=1",
		"[2/2] FAIL Broken fetch_failed: HTTP 502",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
	if ui.tickerStarted {
		t.Fatalf("全部完成后 ticker 应已停止")
	}
}

func TestTruncate_Runes(t *testing.T) {
	if got := truncate("中文标题很长很长", 5); got != "中文..." {
		t.Fatalf("应按字符截断：%q", got)
	}
	if got := truncate("  short ", 10); got != "short" {
		t.Fatalf("短文本应原样返回（去空白）：%q", got)
	}
}
