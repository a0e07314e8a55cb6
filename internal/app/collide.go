package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/John-Robertt/notionsync/internal/domain"
)

// Collision 表示多篇文档写到了同一个产物文件（slug 相同）。
type Collision struct {
	File string
	// Idx 是 items 中的下标，按处理顺序排列；最后一个即最终留在磁盘上的版本。
	Idx []int
}

// FindCollisions 按产物文件名对成功条目分组，只返回多于一篇的组。
//
// - 结果按 File 字典序稳定排序
// - 组内 Idx 保持处理顺序
func FindCollisions(items []domain.ItemResult) []Collision {
	index := make(map[string]int, len(items))
	groups := make([]Collision, 0, 8)

	for i := range items {
		if items[i].Status != domain.StatusSucceeded || items[i].File == "" {
			continue
		}
		f := items[i].File
		if g, ok := index[f]; ok {
			groups[g].Idx = append(groups[g].Idx, i)
			continue
		}
		index[f] = len(groups)
		groups = append(groups, Collision{File: f, Idx: []int{i}})
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Idx) > 1 {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

// MarkCollisions 给冲突组内的每个条目追加告警（就地修改 items），返回冲突组。
//
// 顺序处理下后写者覆盖先写者；被覆盖的条目仍记为 succeeded，只是产物已不是它的内容。
func MarkCollisions(items []domain.ItemResult) []Collision {
	cs := FindCollisions(items)
	for _, c := range cs {
		last := c.Idx[len(c.Idx)-1]
		for _, i := range c.Idx {
			others := make([]string, 0, len(c.Idx)-1)
			for _, j := range c.Idx {
				if j != i {
					others = append(others, items[j].PageID)
				}
			}
			var msg string
			if i == last {
				msg = fmt.Sprintf("产物 %s 与其它文档冲突，已覆盖：%s", c.File, strings.Join(others, ", "))
			} else {
				msg = fmt.Sprintf("产物 %s 与其它文档冲突，已被覆盖：%s", c.File, strings.Join(others, ", "))
			}
			items[i].Warnings = append(items[i].Warnings, msg)
		}
	}
	return cs
}
