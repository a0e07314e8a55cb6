package domain

// Block 是文档块树中的一个节点。
//
// 不变量：
// - Children 保持内容源返回的顺序
// - 载荷字段只在对应 Type 下有意义；未识别的 Type 仍然保留 RichText（用于降级为纯文本）
type Block struct {
	ID          string
	Type        string
	HasChildren bool

	RichText []RichText
	Caption  []RichText
	Checked  bool   // to_do
	Language string // code
	Emoji    string // callout 图标
	URL      string // bookmark/embed/link_preview
	Title    string // child_page/child_database
	File     *FileRef
	// Expression 是块级公式（equation）。
	Expression string

	Cells           [][]RichText // table_row
	HasColumnHeader bool         // table

	Children []Block
}

const (
	BlockParagraph        = "paragraph"
	BlockHeading1         = "heading_1"
	BlockHeading2         = "heading_2"
	BlockHeading3         = "heading_3"
	BlockBulletedListItem = "bulleted_list_item"
	BlockNumberedListItem = "numbered_list_item"
	BlockToDo             = "to_do"
	BlockToggle           = "toggle"
	BlockQuote            = "quote"
	BlockCallout          = "callout"
	BlockCode             = "code"
	BlockImage            = "image"
	BlockVideo            = "video"
	BlockAudio            = "audio"
	BlockFile             = "file"
	BlockPDF              = "pdf"
	BlockBookmark         = "bookmark"
	BlockEmbed            = "embed"
	BlockLinkPreview      = "link_preview"
	BlockEquation         = "equation"
	BlockDivider          = "divider"
	BlockTable            = "table"
	BlockTableRow         = "table_row"
	BlockColumnList       = "column_list"
	BlockColumn           = "column"
	BlockSyncedBlock      = "synced_block"
	BlockChildPage        = "child_page"
	BlockChildDatabase    = "child_database"
	BlockTableOfContents  = "table_of_contents"
	BlockBreadcrumb       = "breadcrumb"
)
