package crawlers

import (
	"sort"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
)

// SeenSet 已累积的规范化URL集合(只读视图)
type SeenSet interface {
	Contains(canonical string) bool
	Len() int
}

// Accumulator 累积集合
// 职责: 规范化URL -> 首次发现的Candidate,只增不改
// 由ScrollDriver独占,只在两次采样之间修改,不需要加锁
type Accumulator struct {
	entries map[string]models.Candidate

	// 插入顺序,用于稳定排序
	order []string
}

// NewAccumulator 创建空的累积集合
func NewAccumulator() *Accumulator {
	return &Accumulator{
		entries: make(map[string]models.Candidate),
		order:   make([]string, 0),
	}
}

// Add 插入候选项,同一规范化URL只保留第一次出现的条目
// 返回是否为新条目
func (a *Accumulator) Add(c models.Candidate) bool {
	key := Normalize(c.URL)
	if _, exists := a.entries[key]; exists {
		return false
	}
	a.entries[key] = c
	a.order = append(a.order, key)
	return true
}

// Merge 批量插入,返回新增数量
func (a *Accumulator) Merge(candidates []models.Candidate) int {
	added := 0
	for _, c := range candidates {
		if a.Add(c) {
			added++
		}
	}
	return added
}

// Contains 实现SeenSet
func (a *Accumulator) Contains(canonical string) bool {
	_, exists := a.entries[canonical]
	return exists
}

// Len 实现SeenSet
func (a *Accumulator) Len() int {
	return len(a.entries)
}

// Sorted 按 (PriorityTier, DOMPosition) 升序返回全部候选项
// 相同键保持插入顺序
func (a *Accumulator) Sorted() []models.Candidate {
	result := make([]models.Candidate, 0, len(a.order))
	for _, key := range a.order {
		result = append(result, a.entries[key])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Less(result[j])
	})
	return result
}

// TierCounts 统计各渠道条目数量
func (a *Accumulator) TierCounts() map[string]int {
	counts := make(map[string]int, len(models.Channels))
	for _, c := range a.entries {
		counts[string(c.SourceChannel)]++
	}
	return counts
}
