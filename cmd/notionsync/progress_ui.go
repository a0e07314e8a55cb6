package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/notionsync/internal/app/run"
	"github.com/John-Robertt/notionsync/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：单篇文档长时间未完成（大量图片）时定期输出一行
type progressUI struct {
	w io.Writer

	okStyle   lipgloss.Style
	failStyle lipgloss.Style
	warnStyle lipgloss.Style
	dimStyle  lipgloss.Style
	headStyle lipgloss.Style

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total int
	done  int
	ok    int
	fail  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	// renderer 绑定到实际输出：非终端（测试 buffer、管道）自动退化为无颜色。
	r := lipgloss.NewRenderer(w)
	return &progressUI{
		w:                  w,
		okStyle:            r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}).Bold(true),
		failStyle:          r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#F25D94"}).Bold(true),
		warnStyle:          r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B58900", Dark: "#E5C07B"}),
		dimStyle:           r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}),
		headStyle:          r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}).Bold(true),
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(opts run.Options) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "%s %s\n", p.dimStyle.Render("["+now.Format("15:04:05")+"]"), p.headStyle.Render("notionsync sync"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  database: %s\n", opts.DatabaseID)
	fmt.Fprintf(p.w, "  content:  %s\n", opts.ContentDir)
	fmt.Fprintf(p.w, "  media:    %s\n", opts.MediaDir)
	fmt.Fprintln(p.w)
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "query":
		fmt.Fprintf(p.w, "查询: pages=%d (%s)\n", intField(fields, "pages"), formatShortDuration(dur))
	case "sync":
		p.total = intField(fields, "total")
		fmt.Fprintf(p.w, "同步: total=%d\n\n", p.total)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	case "collisions":
		fmt.Fprintln(p.w, p.warnStyle.Render(fmt.Sprintf("冲突: %d 个文件被多篇文档写入（后写者覆盖）", intField(fields, "files"))))
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total

	title := truncate(res.Title, 60)
	switch res.Status {
	case domain.StatusSucceeded:
		p.ok++
		line := fmt.Sprintf("[%d/%d] %s %s → %s", idx, total, p.okStyle.Render("OK"), title, res.File)
		if n := res.Images.Localized + res.Images.Failed; n > 0 {
			line += fmt.Sprintf(" images=%d/%d", res.Images.Localized, n)
		}
		if len(res.Warnings) > 0 {
			line += " " + p.warnStyle.Render(fmt.Sprintf("warnings=%d", len(res.Warnings)))
		}
		fmt.Fprintf(p.w, "%s %s\n", line, p.dimStyle.Render("("+formatShortDuration(dur)+")"))
	default:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s: %s %s\n",
			idx, total, p.failStyle.Render("FAIL"), title, res.ErrorCode, truncate(res.ErrorMsg, 160),
			p.dimStyle.Render("("+formatShortDuration(dur)+")"),
		)
	}
	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.done >= p.total {
		p.stopLocked()
	}
}

func (p *progressUI) OnProgress(done, total, ok, fail int, active string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printProgressLocked(done, total, ok, fail, active, elapsed)
}

func (p *progressUI) printProgressLocked(done, total, ok, fail int, active string, elapsed time.Duration) {
	line := fmt.Sprintf("进度: done=%d/%d ok=%d fail=%d elapsed=%s", done, total, ok, fail, formatElapsed(elapsed))
	if active != "" {
		line += " 当前=" + truncate(active, 60)
	}
	fmt.Fprintln(p.w, p.dimStyle.Render(line))
	p.lastPrinted = time.Now()
}

// Stop 停止 keepalive（可重复调用）。
func (p *progressUI) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *progressUI) stopLocked() {
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stop := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done < p.total && time.Since(p.lastPrinted) > threshold {
					p.printProgressLocked(p.done, p.total, p.ok, p.fail, "", time.Since(p.startedAt))
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func intField(fields map[string]any, key string) int {
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
