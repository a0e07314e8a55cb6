package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New 构造写往 w 的文本 slog.Logger。
//
// stdout 留给报告（TTY 摘要或 JSON），诊断日志一律写 stderr，由调用方传入。
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: LevelFromString(level),
	})
	return slog.New(handler)
}

// Discard 返回丢弃一切输出的 logger（测试与库默认值）。
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LevelFromString 解析日志级别；未知值按 warn 处理（批处理任务默认只关心告警）。
func LevelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}
