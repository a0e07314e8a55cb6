//go:build !unix

package fsx

// 非 unix 平台没有可靠的 EXDEV 判定；rename 失败按普通错误返回。
func isEXDEV(err error) bool { return false }
