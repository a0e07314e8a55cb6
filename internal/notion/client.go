// Package notion 是内容源（Notion 数据库）的只读客户端。
//
// 数据库查询交给 github.com/jomei/notionapi；块树直接按原始 JSON 拉取：
// 库只认识固定的块类型，未知类型会丢失载荷，而未知块需要降级为纯文本。
// 本包负责分页、递归拉取子块，并转换为 domain 类型。
package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/John-Robertt/notionsync/internal/domain"
)

const (
	defaultBaseURL  = "https://api.notion.com/v1"
	notionVersion   = "2022-06-28"
	defaultPageSize = 100
	// maxDepth 防御异常数据导致的无限递归；正常文档远达不到。
	maxDepth = 32
	// maxResponseBytes 限制单页块列表的大小（100 个块远小于此值）。
	maxResponseBytes = 32 << 20
)

// Query 描述“已发布文档”的筛选与排序。
type Query struct {
	StatusProperty string
	StatusValue    string
	SortProperty   string
}

// Options 是构造 Client 所需的参数。
type Options struct {
	Token      string
	DatabaseID string
	HTTPClient *http.Client
	Query      Query
}

type databaseAPI interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// Client 实现文档查询与块树拉取。
type Client struct {
	db         databaseAPI
	http       *http.Client
	baseURL    string
	token      string
	databaseID string
	query      Query
	pageSize   int
}

// Error 表示一次内容源调用失败。Op 标明阶段（query/blocks/decode），便于上层分类与提示。
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("notion %s 失败：%v", e.Op, e.Err)
	}
	return fmt.Sprintf("notion %s 失败（%s）：%v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New 构造 Client。HTTPClient 为空时使用 http.DefaultClient；查询与块拉取共用同一个 client。
func New(opts Options) *Client {
	var copts []notionapi.ClientOption
	if opts.HTTPClient != nil {
		copts = append(copts, notionapi.WithHTTPClient(opts.HTTPClient))
	}
	api := notionapi.NewClient(notionapi.Token(opts.Token), copts...)
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		db:         api.Database,
		http:       hc,
		baseURL:    defaultBaseURL,
		token:      opts.Token,
		databaseID: opts.DatabaseID,
		query:      opts.Query,
		pageSize:   defaultPageSize,
	}
}

// QueryPublished 返回全部满足状态条件的页面，按发布日期倒序（跟随分页游标直到结束）。
func (c *Client) QueryPublished(ctx context.Context) ([]domain.Page, error) {
	return c.queryPages(ctx, 0)
}

// Check 以最小代价验证凭据与数据库可访问性：只取一条记录，返回是否有已发布文档。
func (c *Client) Check(ctx context.Context) (bool, error) {
	c2 := *c
	c2.pageSize = 1
	pages, err := c2.queryPages(ctx, 1)
	if err != nil {
		return false, err
	}
	return len(pages) > 0, nil
}

func (c *Client) queryPages(ctx context.Context, limit int) ([]domain.Page, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: c.query.StatusProperty,
			Select:   &notionapi.SelectFilterCondition{Equals: c.query.StatusValue},
		},
		Sorts: []notionapi.SortObject{{
			Property:  c.query.SortProperty,
			Direction: notionapi.SortOrderDESC,
		}},
		PageSize: c.pageSize,
	}

	var out []domain.Page
	for {
		resp, err := c.db.Query(ctx, notionapi.DatabaseID(c.databaseID), req)
		if err != nil {
			return nil, &Error{Op: "query", ID: c.databaseID, Err: err}
		}
		if resp == nil {
			return nil, &Error{Op: "query", ID: c.databaseID, Err: errors.New("空响应")}
		}
		for i := range resp.Results {
			p, err := convertPage(&resp.Results[i])
			if err != nil {
				return nil, &Error{Op: "decode", ID: string(resp.Results[i].ID), Err: err}
			}
			out = append(out, p)
		}
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		next := string(resp.NextCursor)
		if !resp.HasMore || next == "" {
			return out, nil
		}
		req.StartCursor = notionapi.Cursor(next)
	}
}

// Blocks 拉取页面的完整块树（含所有层级的子块，保持顺序）。
func (c *Client) Blocks(ctx context.Context, pageID string) ([]domain.Block, error) {
	return c.children(ctx, pageID, 0)
}

func (c *Client) children(ctx context.Context, id string, depth int) ([]domain.Block, error) {
	if depth > maxDepth {
		return nil, &Error{Op: "blocks", ID: id, Err: fmt.Errorf("块树嵌套超过 %d 层", maxDepth)}
	}

	var out []domain.Block
	cursor := ""
	for {
		resp, err := c.getChildren(ctx, id, cursor)
		if err != nil {
			return nil, &Error{Op: "blocks", ID: id, Err: err}
		}
		for _, raw := range resp.Results {
			b, err := DecodeBlock(raw)
			if err != nil {
				return nil, &Error{Op: "decode", ID: id, Err: err}
			}
			// child_page/child_database 的子块属于另一篇文档，不展开。
			if b.HasChildren && b.Type != domain.BlockChildPage && b.Type != domain.BlockChildDatabase {
				kids, err := c.children(ctx, b.ID, depth+1)
				if err != nil {
					return nil, err
				}
				b.Children = kids
			}
			out = append(out, b)
		}
		if !resp.HasMore || strings.TrimSpace(resp.NextCursor) == "" {
			return out, nil
		}
		cursor = resp.NextCursor
	}
}

// childrenPage 是 GET /blocks/{id}/children 的一页；results 保持原始 JSON 交给 DecodeBlock。
type childrenPage struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor string            `json:"next_cursor"`
}

func (c *Client) getChildren(ctx context.Context, id, cursor string) (*childrenPage, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	u := c.baseURL + "/blocks/" + url.PathEscape(id) + "/children?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp.StatusCode, body)
	}
	var page childrenPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("解码块列表失败：%w", err)
	}
	return &page, nil
}

// apiError 与数据库查询的错误保持同一类型，Describe 对两条路径给出一致的提示。
func apiError(status int, body []byte) error {
	e := &notionapi.Error{}
	if err := json.Unmarshal(body, e); err != nil || e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	e.Status = status
	return e
}

func convertPage(p *notionapi.Page) (domain.Page, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return domain.Page{}, err
	}
	return DecodePage(raw)
}

