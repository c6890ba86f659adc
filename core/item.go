package core

import (
	"time"

	"github.com/rushteam/feedkit/pkg/utils"
)

// Item 是 Feed 链路中的统一承载结构：一条候选内容（post/video）及其
// 特征、分数、元信息、标签。
// Score 用于排序决策；CreatedAt 用于同分时的新鲜度 tie-break；
// Labels 用于解释与观测（例如 score_source=model|fallback）。
type Item struct {
	ID        string
	Score     float64
	CreatedAt time.Time
	Features  map[string]float64
	Meta      map[string]any
	Labels    map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label。
func (it *Item) GetLabel(key string) (utils.Label, bool) {
	if it.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}
