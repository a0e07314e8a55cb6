package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/notionsync/internal/infra/fsx"
	"github.com/John-Robertt/notionsync/internal/infra/httpx"
)

// Localizer 把远程资源下载到 Dir 下，并返回以 PublicPrefix 为根的引用路径。
//
// 约束：
// - 目标文件已存在：直接返回路径，不发请求（重复同步幂等）
// - 下载经由临时文件 + rename 落盘：失败不会留下“看起来完整”的文件
type Localizer struct {
	Client       *http.Client
	Dir          string
	PublicPrefix string
}

func (l *Localizer) Localize(ctx context.Context, remoteURL, filename string) (string, error) {
	if err := validName(filename); err != nil {
		return "", err
	}
	public := l.PublicPath(filename)

	ok, err := fsx.RegularFileExists(filepath.Join(l.Dir, filename))
	if err != nil {
		return "", err
	}
	if ok {
		return public, nil
	}

	if l.Client == nil {
		return "", errors.New("media client 为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &httpx.HTTPStatusError{URL: redact(remoteURL), StatusCode: resp.StatusCode}
	}

	if _, err := fsx.WriteStreamAtomic(l.Dir, filename, resp.Body); err != nil {
		return "", fmt.Errorf("写入 %s 失败：%w", filename, err)
	}
	return public, nil
}

// PublicPath 返回 filename 对应的站点内引用路径。
func (l *Localizer) PublicPath(filename string) string {
	prefix := l.PublicPrefix
	if prefix == "" {
		prefix = "/"
	}
	return path.Join(prefix, filename)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("非法的媒体文件名：%q", name)
	}
	return nil
}
