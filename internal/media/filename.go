package media

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultExt 用于 URL 路径没有（合法）扩展名的资源。
const DefaultExt = ".jpg"

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)

// FileName 为 (文档, 资源) 生成稳定且唯一的本地文件名：<docID>-<hash><ext>。
//
// hash 取自去掉查询串的 URL：托管文件的签名参数每次同步都会变化，而路径不变，
// 因此同一张图在重复同步时得到同一个文件名，可以直接命中已存在的文件。
// 不同文档的 docID 不同，文件名不会互相覆盖。
func FileName(docID, rawURL string) string {
	key, ext := identity(rawURL)
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key))
	return compactID(docID) + "-" + strings.ReplaceAll(id.String(), "-", "")[:16] + ext
}

// CoverFileName 是封面的文件名（与正文图片同目录，前缀区分）。
func CoverFileName(docID, rawURL string) string {
	return "cover-" + FileName(docID, rawURL)
}

func identity(rawURL string) (key, ext string) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL, DefaultExt
	}
	key = strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.EscapedPath()
	ext = strings.ToLower(path.Ext(u.Path))
	if !extPattern.MatchString(ext) {
		ext = DefaultExt
	}
	return key, ext
}

func compactID(id string) string {
	id = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
	if id == "" {
		return "doc"
	}
	return id
}

// redact 去掉查询串与片段，用于日志（避免把签名参数写进日志）。
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
