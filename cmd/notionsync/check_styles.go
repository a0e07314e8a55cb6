package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// checkStyles 渲染 check 子命令的逐项结果行。
type checkStyles struct {
	okS, warnS, failS lipgloss.Style
}

func newCheckStyles(w io.Writer) checkStyles {
	r := lipgloss.NewRenderer(w)
	return checkStyles{
		okS:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}).Bold(true),
		warnS: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B58900", Dark: "#E5C07B"}).Bold(true),
		failS: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#F25D94"}).Bold(true),
	}
}

func (s checkStyles) ok(msg string) string   { return s.okS.Render("✓") + " " + msg }
func (s checkStyles) warn(msg string) string { return s.warnS.Render("!") + " " + msg }
func (s checkStyles) fail(msg string) string { return s.failS.Render("✗") + " " + msg }
