package core

import "sort"

// SortRanked 是 Feed 的统一排序规则：按 Score 降序；同分时按
// CreatedAt 新者在前（确定性 tie-break）；其余情况保持稳定顺序。
// 降级打分（score=0）的候选不被剔除，只是平均排得更靠后，
// 这是有意的降级行为而不是错误。
func SortRanked(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
