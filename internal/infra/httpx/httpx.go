package httpx

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultAPITimeout   = 30 * time.Second
	defaultMediaTimeout = 60 * time.Second
	defaultRetryMax     = 2

	// maxRetryWait 限制单次退避等待（Retry-After 可能给出很长的值）。
	maxRetryWait = 10 * time.Second
)

// HTTPStatusError 表示服务端返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	if e.URL == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d：%s", e.StatusCode, e.URL)
}

// Transport 把“UA 池 + 代理 + keep-alive 策略 + 有界重试”固化为统一策略。
//
// 调用方（Notion 客户端、图片下载）只关心请求本身，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	ua *uaPool

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int

	// RetryBody 允许对带 body 的请求重试（要求 req.GetBody 非空）。
	// Notion 的 database query 是只读 POST，API 客户端会打开它。
	RetryBody bool

	// DisableKeepAlives 决定是否对 Request 设置 Close=true（额外保险）。
	DisableKeepAlives bool

	// sleep 可替换，测试中避免真实等待。
	sleep func(d time.Duration, done <-chan struct{}) bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !t.canRetry(req) {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r, err := t.prepare(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			if !retryableStatus(resp.StatusCode) || attempt == max {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), attempt)
			drain(resp.Body)
			lastErr = &HTTPStatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
			if !t.wait(wait, req) {
				return nil, req.Context().Err()
			}
			continue
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (t *Transport) canRetry(req *http.Request) bool {
	if req.Body == nil || req.Body == http.NoBody {
		return true
	}
	return t.RetryBody && req.GetBody != nil
}

func (t *Transport) prepare(req *http.Request, attempt int) (*http.Request, error) {
	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	if attempt > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	if r.Header.Get("User-Agent") == "" && t.ua != nil {
		r.Header.Set("User-Agent", t.ua.random())
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return r, nil
}

func (t *Transport) wait(d time.Duration, req *http.Request) bool {
	sleep := t.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return sleep(d, req.Context().Done())
}

func sleepCtx(d time.Duration, done <-chan struct{}) bool {
	tm := time.NewTimer(d)
	defer tm.Stop()
	select {
	case <-tm.C:
		return true
	case <-done:
		return false
	}
}

// retryableStatus：限流与网关类错误值得重试；其它状态码直接交给调用方。
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func retryAfter(h string, attempt int) time.Duration {
	d := time.Duration(attempt+1) * time.Second
	if s, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && s >= 0 {
		d = time.Duration(s) * time.Second
	}
	if d > maxRetryWait {
		d = maxRetryWait
	}
	return d
}

func drain(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64<<10))
	_ = rc.Close()
}

// NewAPIClient 构造访问内容源 API（Notion）的 HTTP client。
//
// 规则：
// - proxyURL 非空：走代理，且禁用 keep-alive（每请求新连接）
// - 只读 POST（database query）允许重试
// - 有界重试 + 总超时
func NewAPIClient(proxyURL string) (*http.Client, error) {
	c, tr, err := newClient(strings.TrimSpace(proxyURL), defaultAPITimeout)
	if err != nil {
		return nil, err
	}
	tr.RetryBody = true
	return c, nil
}

// NewMediaClient 构造用于图片下载的 HTTP client。
//
// 规则：
// - mediaProxy=false：图片直连（忽略 proxyURL）
// - mediaProxy=true：图片走 proxyURL，且禁用 keep-alive
func NewMediaClient(proxyURL string, mediaProxy bool) (*http.Client, error) {
	if !mediaProxy {
		c, _, err := newClient("", defaultMediaTimeout)
		return c, err
	}
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return nil, errors.New("media_proxy=true 但 proxy.url 为空")
	}
	c, _, err := newClient(proxyURL, defaultMediaTimeout)
	return c, err
}

func newClient(proxyURL string, timeout time.Duration) (*http.Client, *Transport, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
	}

	disableKeepAlives := false
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, nil, fmt.Errorf("代理地址缺少 scheme 或 host：%q", proxyURL)
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	tr := &Transport{
		Base:              base,
		ua:                globalUA,
		RetryMax:          defaultRetryMax,
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, tr, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
