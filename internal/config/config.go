package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/notionsync/internal/props"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingToken 表示没有提供 NOTION_TOKEN。
	ErrCodeMissingToken = "config_missing_token"
	// ErrCodeMissingDatabase 表示没有提供数据库 ID。
	ErrCodeMissingDatabase = "config_missing_database"
)

const (
	// FileName 是 cwd 下默认查找的配置文件名（可选）。
	FileName = "notionsync.yaml"

	EnvToken      = "NOTION_TOKEN"
	EnvDatabaseID = "NOTION_DATABASE_ID"

	DefaultContentDir       = "data/blog"
	DefaultMediaDir         = "public/static/images/notion"
	DefaultMediaPrefix      = "/static/images/notion"
	DefaultExtension        = ".md"
	DefaultImageConcurrency = 4
	DefaultLogLevel         = "warn"
	DefaultStatusProperty   = "Status"
	DefaultStatusValue      = "Published"

	maxImageConcurrency = 16
)

// envFiles 按优先级从高到低排列；真实环境变量优先于任何文件。
var envFiles = []string{".env.local", ".env"}

// 测试中替换，避免读写进程环境。
var lookupEnv = os.LookupEnv

// CLIArgs 是命令行可覆盖的字段。空字符串表示未指定。
type CLIArgs struct {
	ConfigPath string
	ContentDir string
	MediaDir   string
	Extension  string
	LogLevel   string
}

// FileConfig 对应 notionsync.yaml 的解析结构。
type FileConfig struct {
	DatabaseID       string           `yaml:"database_id"`
	ContentDir       string           `yaml:"content_dir"`
	MediaDir         string           `yaml:"media_dir"`
	MediaPrefix      string           `yaml:"media_prefix"`
	Extension        string           `yaml:"extension"`
	ImageConcurrency int              `yaml:"image_concurrency"`
	LogLevel         string           `yaml:"log_level"`
	Proxy            *ProxyConfig     `yaml:"proxy"`
	MediaProxy       bool             `yaml:"media_proxy"`
	StatusValue      string           `yaml:"status_value"`
	Properties       PropertiesConfig `yaml:"properties"`
}

type ProxyConfig struct {
	URL string `yaml:"url"`
}

// PropertiesConfig 允许把字段映射到数据库里不同名字的属性。
type PropertiesConfig struct {
	Title   string `yaml:"title"`
	Date    string `yaml:"date"`
	Tags    string `yaml:"tags"`
	Summary string `yaml:"summary"`
	Author  string `yaml:"author"`
	Slug    string `yaml:"slug"`
	Cover   string `yaml:"cover"`
	Status  string `yaml:"status"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未使用配置文件时为空。
	ConfigPath string

	Token      string
	DatabaseID string

	ContentDir  string // 绝对路径
	MediaDir    string // 绝对路径
	MediaPrefix string // 以 '/' 开头的站点内路径
	Extension   string // 以 '.' 开头

	ImageConcurrency int
	ProxyURL         string
	MediaProxy       bool
	LogLevel         string

	Schema         props.Schema
	StatusProperty string
	StatusValue    string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingToken:
		return fmt.Sprintf("%s：未设置 %s（可写入 .env.local）", e.Code, EnvToken)
	case ErrCodeMissingDatabase:
		return fmt.Sprintf("%s：未设置 %s（可写入 .env.local 或 %s 的 database_id）", e.Code, EnvDatabaseID, FileName)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置，合并为最终配置。
//
// 覆盖优先级（低 → 高）：
// 1) 内置默认值
// 2) 配置文件：--config 指定（必须存在），否则 <cwd>/notionsync.yaml（可选）
// 3) <cwd>/.env 与 <cwd>/.env.local（.env.local 优先）
// 4) 真实环境变量
// 5) CLI 参数
//
// 凭据只来自环境（含 .env 文件）；数据库 ID 也可写在配置文件中。
// 该函数不做任何网络访问：缺凭据在这里就失败。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		required = true
	}
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	env, err := readEnv(cwdAbs)
	if err != nil {
		return EffectiveConfig{}, err
	}
	return merge(cwdAbs, cli, fc, env, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, env map[string]string, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	token := strings.TrimSpace(env[EnvToken])
	if token == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingToken}
	}
	dbID := firstNonEmpty(env[EnvDatabaseID], fc.DatabaseID)
	if dbID == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingDatabase}
	}

	ext, err := normalizeExt(firstNonEmpty(cli.Extension, fc.Extension, DefaultExtension))
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	prefix := firstNonEmpty(fc.MediaPrefix, DefaultMediaPrefix)
	if !strings.HasPrefix(prefix, "/") {
		return EffectiveConfig{}, invalid(fmt.Errorf("media_prefix 必须以 / 开头：%q", prefix))
	}
	prefix = path.Clean(prefix)

	conc := fc.ImageConcurrency
	if conc == 0 {
		conc = DefaultImageConcurrency
	}
	// 范围 [1, 16]；超出截断。
	if conc < 1 {
		conc = 1
	}
	if conc > maxImageConcurrency {
		conc = maxImageConcurrency
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return EffectiveConfig{}, invalid(fmt.Errorf("proxy.url 无效：%w", err))
		}
		if u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid(fmt.Errorf("proxy.url 缺少 scheme 或 host：%q", proxyURL))
		}
	}
	if fc.MediaProxy && proxyURL == "" {
		return EffectiveConfig{}, invalid(errors.New("media_proxy=true 但 proxy.url 为空"))
	}

	level := strings.ToLower(firstNonEmpty(cli.LogLevel, fc.LogLevel, DefaultLogLevel))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, invalid(fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", level))
	}

	def := props.DefaultSchema()
	p := fc.Properties
	schema := props.Schema{
		Title:   firstNonEmpty(p.Title, def.Title),
		Date:    firstNonEmpty(p.Date, def.Date),
		Tags:    firstNonEmpty(p.Tags, def.Tags),
		Summary: firstNonEmpty(p.Summary, def.Summary),
		Author:  firstNonEmpty(p.Author, def.Author),
		Slug:    firstNonEmpty(p.Slug, def.Slug),
		Cover:   firstNonEmpty(p.Cover, def.Cover),
	}

	return EffectiveConfig{
		ConfigPath:       cfgPath,
		Token:            token,
		DatabaseID:       dbID,
		ContentDir:       absCleanFrom(cwdAbs, firstNonEmpty(cli.ContentDir, fc.ContentDir, DefaultContentDir)),
		MediaDir:         absCleanFrom(cwdAbs, firstNonEmpty(cli.MediaDir, fc.MediaDir, DefaultMediaDir)),
		MediaPrefix:      prefix,
		Extension:        ext,
		ImageConcurrency: conc,
		ProxyURL:         proxyURL,
		MediaProxy:       fc.MediaProxy,
		LogLevel:         level,
		Schema:           schema,
		StatusProperty:   firstNonEmpty(p.Status, DefaultStatusProperty),
		StatusValue:      firstNonEmpty(fc.StatusValue, DefaultStatusValue),
	}, nil
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

func normalizeExt(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !extPattern.MatchString(ext) {
		return "", fmt.Errorf("extension 无效：%q", ext)
	}
	return ext, nil
}

// readEnv 合并 .env 文件与真实环境：真实环境 > .env.local > .env。
// 只读取同步需要的变量，不修改进程环境。
func readEnv(cwdAbs string) (map[string]string, error) {
	out := map[string]string{}
	for i := len(envFiles) - 1; i >= 0; i-- {
		p := filepath.Join(cwdAbs, envFiles[i])
		m, err := godotenv.Read(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		for k, v := range m {
			out[k] = v
		}
	}
	for _, k := range []string{EnvToken, EnvDatabaseID} {
		if v, ok := lookupEnv(k); ok && strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(p string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		// 空文件 Decode 返回 io.EOF：视为全部使用默认值。
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
