package domain

const (
	// DefaultTitle / DefaultAuthor 是字段缺失时的兜底值。
	DefaultTitle  = "Untitled"
	DefaultAuthor = "default"
)

// Metadata 是从 Page 属性规范化得到的元数据（每篇文档一份，用完即弃）。
//
// 不变量：
// - Date 永远是合法的 YYYY-MM-DD（缺失/非法时取处理当天）
// - Tags 去重、去空白，保持输入顺序；缺失时为空切片而不是 nil
// - Slug/CoverURL 为空表示未提供
type Metadata struct {
	PageID   string
	Title    string
	Date     string
	Tags     []string
	Summary  string
	Author   string
	Slug     string
	CoverURL string
}
