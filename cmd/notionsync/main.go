package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/notionsync/internal/app/assemble"
	"github.com/John-Robertt/notionsync/internal/app/run"
	"github.com/John-Robertt/notionsync/internal/config"
	"github.com/John-Robertt/notionsync/internal/domain"
	"github.com/John-Robertt/notionsync/internal/infra/fsx"
	"github.com/John-Robertt/notionsync/internal/infra/httpx"
	"github.com/John-Robertt/notionsync/internal/logging"
	"github.com/John-Robertt/notionsync/internal/media"
	"github.com/John-Robertt/notionsync/internal/notion"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// 以下变量在测试中替换（避免真实网络/终端依赖）。
var (
	getwd          = os.Getwd
	newAPIClient   = httpx.NewAPIClient
	newMediaClient = httpx.NewMediaClient
	isTTY          = fileIsTTY
)

// exitError 携带退出码；其余错误（cobra 参数解析失败等）一律视为用法错误。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fatal(err error) error { return &exitError{code: exitFatal, err: err} }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		fmt.Fprintln(stderr, ee.err)
		return ee.code
	}
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	fmt.Fprintln(stderr, `使用 "notionsync --help" 查看用法。`)
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "notionsync",
		Short:         "把 Notion 数据库中已发布的文章同步为本地 markdown",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newSyncCmd(stdout, stderr))
	root.AddCommand(newCheckCmd(stdout, stderr))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "打印版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "notionsync %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})
	return root
}

func newSyncCmd(stdout, stderr io.Writer) *cobra.Command {
	var cli config.CLIArgs
	var reportPath string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "执行一次同步（查询 → 转换 → 本地化图片 → 写入）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return syncCmd(cmd.Context(), cli, reportPath, stdout, stderr)
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "", "额外把 RunReport JSON 写入该文件（原子替换）")
	addConfigFlags(cmd, &cli)
	cmd.Flags().StringVar(&cli.ContentDir, "content-dir", "", "markdown 输出目录（覆盖配置）")
	cmd.Flags().StringVar(&cli.MediaDir, "media-dir", "", "图片输出目录（覆盖配置）")
	cmd.Flags().StringVar(&cli.Extension, "ext", "", "产物扩展名，例如 .md 或 .mdx")
	return cmd
}

func addConfigFlags(cmd *cobra.Command, cli *config.CLIArgs) {
	cmd.Flags().StringVar(&cli.ConfigPath, "config", "", "配置文件路径（默认 ./"+config.FileName+"，可缺省）")
	cmd.Flags().StringVar(&cli.LogLevel, "log-level", "", "日志级别：debug|info|warn|error")
}

func loadConfig(cli config.CLIArgs) (config.EffectiveConfig, error) {
	cwd, err := getwd()
	if err != nil {
		return config.EffectiveConfig{}, fatal(fmt.Errorf("读取当前目录失败：%w", err))
	}
	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		return config.EffectiveConfig{}, fatal(fmt.Errorf("配置错误（%s）：%w", config.Code(err), err))
	}
	return eff, nil
}

func newNotionClient(eff config.EffectiveConfig) (*notion.Client, error) {
	api, err := newAPIClient(eff.ProxyURL)
	if err != nil {
		return nil, fatal(fmt.Errorf("proxy.url 无效：%w", err))
	}
	return notion.New(notion.Options{
		Token:      eff.Token,
		DatabaseID: eff.DatabaseID,
		HTTPClient: api,
		Query: notion.Query{
			StatusProperty: eff.StatusProperty,
			StatusValue:    eff.StatusValue,
			SortProperty:   eff.Schema.Date,
		},
	}), nil
}

func syncCmd(ctx context.Context, cli config.CLIArgs, reportPath string, stdout, stderr io.Writer) error {
	eff, err := loadConfig(cli)
	if err != nil {
		return err
	}
	logger := logging.New(eff.LogLevel, stderr)

	nc, err := newNotionClient(eff)
	if err != nil {
		return err
	}
	mc, err := newMediaClient(eff.ProxyURL, eff.MediaProxy)
	if err != nil {
		return fatal(fmt.Errorf("图片下载配置无效：%w", err))
	}

	asm := newAssembler(eff, nc, mc, logger)

	var obs run.Observer
	progressW, interactive := pickProgressWriter(stdout, stderr)
	if interactive {
		ui := newProgressUI(progressW)
		defer ui.Stop()
		obs = ui
	}

	rr, err := run.Execute(ctx, run.Options{
		DatabaseID: eff.DatabaseID,
		ContentDir: eff.ContentDir,
		MediaDir:   eff.MediaDir,
		Logger:     logger,
	}, nc, asm, obs)
	if err != nil {
		return fatal(err)
	}

	if reportPath != "" {
		if err := writeReportFile(reportPath, rr); err != nil {
			emitReport(stdout, stderr, rr)
			return fatal(fmt.Errorf("写入报告失败：%w", err))
		}
	}
	emitReport(stdout, stderr, rr)
	return nil
}

// writeReportFile 以 cwd 为基准解析相对路径，原子写入带缩进的报告。
func writeReportFile(path string, rr domain.RunReport) error {
	if !filepath.IsAbs(path) {
		cwd, err := getwd()
		if err != nil {
			return err
		}
		path = filepath.Join(cwd, path)
	}
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b)
}

func newAssembler(eff config.EffectiveConfig, src assemble.BlockSource, mc *http.Client, logger *slog.Logger) *assemble.Assembler {
	loc := &media.Localizer{Client: mc, Dir: eff.MediaDir, PublicPrefix: eff.MediaPrefix}
	return &assemble.Assembler{
		Source: src,
		Rewriter: &media.Rewriter{
			Fetcher:     loc,
			LocalPrefix: eff.MediaPrefix,
			Concurrency: eff.ImageConcurrency,
			Logger:      logger,
		},
		Cover:      loc,
		ContentDir: eff.ContentDir,
		Ext:        eff.Extension,
		Schema:     eff.Schema,
		Logger:     logger,
	}
}

func newCheckCmd(stdout, stderr io.Writer) *cobra.Command {
	var cli config.CLIArgs
	cmd := &cobra.Command{
		Use:   "check",
		Short: "检查凭据与数据库连通性（只查询一条记录）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkCmd(cmd.Context(), cli, stdout)
		},
	}
	addConfigFlags(cmd, &cli)
	return cmd
}

// knownTokenPrefixes 是 Notion integration 令牌的已知前缀（旧版 secret_，新版 ntn_）。
var knownTokenPrefixes = []string{"secret_", "ntn_"}

func checkCmd(ctx context.Context, cli config.CLIArgs, stdout io.Writer) error {
	st := newCheckStyles(stdout)

	eff, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintln(stdout, st.fail("配置"))
		return err
	}
	fmt.Fprintln(stdout, st.ok(fmt.Sprintf("%s 已设置（%s）", config.EnvToken, maskToken(eff.Token))))
	if !hasKnownPrefix(eff.Token) {
		fmt.Fprintln(stdout, st.warn(fmt.Sprintf("%s 不以 %s 开头，可能不是 integration 令牌", config.EnvToken, strings.Join(knownTokenPrefixes, " / "))))
	}
	fmt.Fprintln(stdout, st.ok(fmt.Sprintf("%s 已设置（%s）", config.EnvDatabaseID, eff.DatabaseID)))

	nc, err := newNotionClient(eff)
	if err != nil {
		return err
	}
	found, err := nc.Check(ctx)
	if err != nil {
		fmt.Fprintln(stdout, st.fail("查询数据库"))
		return fatal(errors.New(notion.Describe(err)))
	}
	if found {
		fmt.Fprintln(stdout, st.ok(fmt.Sprintf("查询成功：存在 %s=%s 的文档", eff.StatusProperty, eff.StatusValue)))
	} else {
		fmt.Fprintln(stdout, st.warn(fmt.Sprintf("查询成功，但没有 %s=%s 的文档", eff.StatusProperty, eff.StatusValue)))
	}
	return nil
}

func hasKnownPrefix(token string) bool {
	for _, p := range knownTokenPrefixes {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}

// maskToken 只保留前后少量字符，避免令牌出现在终端回滚或 CI 日志中。
func maskToken(token string) string {
	if len(token) <= 10 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "..." + token[len(token)-4:]
}

func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	summary := fmt.Sprintf("完成：total=%d succeeded=%d failed=%d", rr.Summary.Total, rr.Summary.Succeeded, rr.Summary.Failed)
	if isTTY(stdout) {
		fmt.Fprintln(stdout, summary)
		for _, it := range rr.Failures() {
			fmt.Fprintf(stderr, "%s %s: %s\n", it.Title, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	_ = json.NewEncoder(stdout).Encode(rr)
	fmt.Fprintln(stderr, summary)
}

func fileIsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}
