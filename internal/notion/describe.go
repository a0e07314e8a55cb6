package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jomei/notionapi"
)

// Describe 把内容源错误转换为可操作的提示（常见问题：令牌失效、数据库未共享、限流、属性名不匹配）。
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return "NOTION_TOKEN 无效或已失效（HTTP 401）。请检查令牌是否完整、integration 是否仍存在。"
		case http.StatusForbidden, http.StatusNotFound:
			return fmt.Sprintf("数据库不存在或未共享给该 integration（HTTP %d）。请在 Notion 中把数据库连接到 integration，并确认 NOTION_DATABASE_ID。", apiErr.Status)
		case http.StatusTooManyRequests:
			return "触发 Notion 限流（HTTP 429）。请稍后重试。"
		case http.StatusBadRequest:
			return fmt.Sprintf("查询被拒绝（HTTP 400）：%s。请检查配置中的属性名与属性类型是否与数据库一致。", msg)
		}
		if apiErr.Status != 0 {
			return fmt.Sprintf("Notion 返回 HTTP %d：%s", apiErr.Status, msg)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return "请求 Notion 超时。请检查网络或 proxy.url 后重试。"
	}
	if errors.Is(err, context.Canceled) {
		return "已取消。"
	}
	return err.Error()
}
