package notion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"401", &Error{Op: "query", Err: &notionapi.Error{Status: 401, Message: "API token is invalid."}}, "NOTION_TOKEN"},
		{"404", &Error{Op: "query", Err: &notionapi.Error{Status: 404}}, "未共享"},
		{"429", fmt.Errorf("wrap: %w", &notionapi.Error{Status: 429}), "限流"},
		{"400", &notionapi.Error{Status: 400, Message: "Could not find property with name or id: Status"}, "Could not find property"},
		{"timeout", &Error{Op: "blocks", Err: context.DeadlineExceeded}, "超时"},
		{"other", errors.New("boom"), "boom"},
	}
	for _, c := range cases {
		if got := Describe(c.err); !strings.Contains(got, c.want) {
			t.Fatalf("%s：期望包含 %q，实际 %q", c.name, c.want, got)
		}
	}
	if Describe(nil) != "" {
		t.Fatalf("nil 错误应返回空串")
	}
}
