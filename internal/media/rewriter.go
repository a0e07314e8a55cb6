package media

import (
	"context"
	"html"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency 是单篇文档内同时下载的图片数上限。
const DefaultConcurrency = 4

// Fetcher 是 Rewriter 对本地化能力的依赖（*Localizer 实现它；测试可替换）。
type Fetcher interface {
	Localize(ctx context.Context, remoteURL, filename string) (string, error)
}

// Rewriter 扫描 markdown 中的图片引用，把远程图片本地化并改写为本地路径。
type Rewriter struct {
	Fetcher     Fetcher
	LocalPrefix string
	Concurrency int
	Logger      *slog.Logger
}

// Stats 是一次改写的统计。
type Stats struct {
	Localized int
	Failed    int
}

// Rewrite 见 RewriteWithStats。
func (r *Rewriter) Rewrite(ctx context.Context, markdown, docID string) string {
	out, _ := r.RewriteWithStats(ctx, markdown, docID)
	return out
}

// RewriteWithStats 本地化 markdown 中所有不同的远程图片 URL，并替换其全部出现位置。
//
// - 已指向 LocalPrefix 的引用、非 http(s) 引用不处理（重复执行安全）
// - 下载并发执行（上限 Concurrency），全部结束后才开始替换
// - 单张图片失败只记日志，该引用保持远程 URL
func (r *Rewriter) RewriteWithStats(ctx context.Context, markdown, docID string) (string, Stats) {
	var st Stats
	urls := r.remoteRefs(markdown)
	if len(urls) == 0 {
		return markdown, st
	}

	locals := make([]string, len(urls))
	errs := make([]error, len(urls))

	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, u := range urls {
		g.Go(func() error {
			// 每个任务只写自己的下标，无需加锁；错误不向 group 传播，避免一张图拖垮整篇。
			locals[i], errs[i] = r.Fetcher.Localize(ctx, u, FileName(docID, u))
			return nil
		})
	}
	_ = g.Wait()

	var pairs [][2]string
	for i, u := range urls {
		if errs[i] != nil {
			st.Failed++
			r.logger().Warn("图片本地化失败，保留远程地址", "doc", docID, "url", redact(u), "err", errs[i])
			continue
		}
		st.Localized++
		pairs = append(pairs, [2]string{u, locals[i]})
		if esc := html.EscapeString(u); esc != u {
			// HTML 属性里的 & 写作 &amp;：两种写法都要替换。
			pairs = append(pairs, [2]string{esc, locals[i]})
		}
	}
	if len(pairs) == 0 {
		return markdown, st
	}

	// 同一位置能匹配多个 URL 时取最长者（一个 URL 可能是另一个的前缀）。
	sort.SliceStable(pairs, func(a, b int) bool { return len(pairs[a][0]) > len(pairs[b][0]) })
	args := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		args = append(args, p[0], p[1])
	}
	return strings.NewReplacer(args...).Replace(markdown), st
}

func (r *Rewriter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// remoteRefs 返回需要本地化的不同 URL（按首次出现顺序）。
func (r *Rewriter) remoteRefs(markdown string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, u := range ImageRefs(markdown) {
		if !r.isRemote(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (r *Rewriter) isRemote(u string) bool {
	if r.LocalPrefix != "" && strings.HasPrefix(u, r.LocalPrefix) {
		return false
	}
	pu, err := url.Parse(u)
	if err != nil || pu.Host == "" {
		return false
	}
	return pu.Scheme == "http" || pu.Scheme == "https"
}

// ImageRefs 按出现顺序列出 markdown 中全部图片引用：
// markdown 图片语法的目标地址，以及内联/块级 HTML 中 <img src>。
func ImageRefs(markdown string) []string {
	src := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var out []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Image:
			out = append(out, string(v.Destination))
		case *ast.RawHTML:
			var b strings.Builder
			for i := 0; i < v.Segments.Len(); i++ {
				seg := v.Segments.At(i)
				b.Write(seg.Value(src))
			}
			out = append(out, htmlImages(b.String())...)
		case *ast.HTMLBlock:
			var b strings.Builder
			lines := v.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			if v.HasClosure() {
				b.Write(v.ClosureLine.Value(src))
			}
			out = append(out, htmlImages(b.String())...)
		}
		return ast.WalkContinue, nil
	})
	return out
}

func htmlImages(fragment string) []string {
	if !strings.Contains(strings.ToLower(fragment), "<img") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("src"); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	})
	return out
}
