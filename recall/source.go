package recall

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// Source 表示一个候选源（关注流/订阅频道/热门/...）。
// 内容与关系数据由外部服务持有，这里只约定拉取契约：
// 返回的 Item 需预填原始互动计数（views/likes/comments/shares）
// 与 CreatedAt。
type Source interface {
	Name() string
	Fetch(ctx context.Context, fctx *core.FeedContext) ([]*core.Item, error)
}

// SourceFunc 将函数适配为 Source。
type SourceFunc struct {
	SourceName string
	Fn         func(ctx context.Context, fctx *core.FeedContext) ([]*core.Item, error)
}

func (s SourceFunc) Name() string { return s.SourceName }

func (s SourceFunc) Fetch(ctx context.Context, fctx *core.FeedContext) ([]*core.Item, error) {
	return s.Fn(ctx, fctx)
}
