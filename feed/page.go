package feed

import (
	"encoding/json"
	"time"

	"github.com/rushteam/feedkit/core"
)

// Page 是一页排序后的 Feed 结果，也是缓存载荷的逻辑形态。
// 序列化后的字节对 FeedCache 是不透明的。
type Page struct {
	FeedType    string     `json:"feedType"`
	UserID      string     `json:"userId"`
	Page        int        `json:"page"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Items       []PageItem `json:"items"`
}

// PageItem 是页内的单条候选（已排序）。
type PageItem struct {
	ID        string         `json:"id"`
	Score     float64        `json:"score"`
	CreatedAt time.Time      `json:"createdAt"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// buildPage 将排序后的 items 固化为 Page。
func buildPage(fctx *core.FeedContext, items []*core.Item, now time.Time) *Page {
	page := &Page{
		FeedType:    fctx.FeedType,
		UserID:      fctx.UserID,
		Page:        fctx.Page,
		GeneratedAt: now.UTC(),
		Items:       make([]PageItem, 0, len(items)),
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		page.Items = append(page.Items, PageItem{
			ID:        it.ID,
			Score:     it.Score,
			CreatedAt: it.CreatedAt,
			Meta:      it.Meta,
		})
	}
	return page
}

// EncodePage 将 Page 序列化为缓存载荷。
func EncodePage(p *Page) ([]byte, error) {
	return json.Marshal(p)
}

// DecodePage 从缓存载荷还原 Page。
func DecodePage(raw []byte) (*Page, error) {
	var p Page
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
