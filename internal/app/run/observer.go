package run

import (
	"time"

	"github.com/John-Robertt/notionsync/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 文档串行处理，但 CLI 的 keepalive ticker 会并发读取状态：实现需自行加锁。
type Observer interface {
	// OnStart 在 Execute 开始、任何网络请求之前调用。
	OnStart(opts Options)
	// OnPhaseDone 在阶段结束/就绪时调用（query、sync、collisions）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在一篇文档处理完成时调用。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
	// OnProgress 用于 keepalive（通常由 CLI 自己 ticker 触发；run 层不强制调用）。
	OnProgress(done, total, ok, fail int, active string, elapsed time.Duration)
}

// nopObserver 让 Execute 内部无需到处判空。
type nopObserver struct{}

func (nopObserver) OnStart(Options)                                       {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration)     {}
func (nopObserver) OnItemDone(int, int, domain.ItemResult, time.Duration) {}
func (nopObserver) OnProgress(int, int, int, int, string, time.Duration)  {}
