package core

import "github.com/rushteam/feedkit/pkg/utils"

// FeedContext 承载一次 Feed 请求的用户/场景信息，贯穿整个 Pipeline 透传。
type FeedContext struct {
	UserID   string // 使用 string 类型（通用，支持所有 ID 格式）
	FeedType string // 例如 "video" / "post" / "mixed"
	Page     int    // 页码，从 1 开始

	// Params 请求级上下文参数，包含：
	// - 请求参数：page_size, device_type 等
	// - 实时特征：realtime_ctr 等（建议加 realtime_ 前缀区分）
	Params map[string]any

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	// 例如：新用户、重度用户等
	Labels map[string]utils.Label
}

// PutLabel 写入用户级 Label。
func (fctx *FeedContext) PutLabel(key string, lbl utils.Label) {
	if fctx.Labels == nil {
		fctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := fctx.Labels[key]; ok {
		fctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	fctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (fctx *FeedContext) GetLabel(key string) (utils.Label, bool) {
	if fctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := fctx.Labels[key]
	return lbl, ok
}
