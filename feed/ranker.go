package feed

import (
	"context"
	"time"

	"github.com/rushteam/feedkit/cache"
	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/recall"
)

// Ranker 串起完整的 Feed 服务路径：
//
//	请求 → FeedCache.Get（命中立即返回）
//	     → miss：捕获代际 → 候选源 → Pipeline（特征/打分/重排）
//	     → FeedCache.Set → 返回
//
// 不变量：
//   - 命中路径只做一次缓存查找，不触碰特征抽取与打分
//   - 缓存不可达视为 miss 走完整计算路径，请求不因缓存失败而失败
//   - INVALID_INPUT（特征校验失败）向上传播，那是上游数据 bug
//   - 空候选页也会被缓存（空页是合法结果，不是 miss）
//
// 活动事件（新发布/新点赞等外部协作方）直接调用
// FeedCache.InvalidateUser 使受影响用户的缓存失效。
type Ranker struct {
	Cache      *cache.FeedCache
	Candidates recall.Source
	Pipeline   *pipeline.Pipeline

	// now 可注入的时钟（仅测试使用）
	now func() time.Time
}

func NewRanker(c *cache.FeedCache, candidates recall.Source, p *pipeline.Pipeline) *Ranker {
	return &Ranker{
		Cache:      c,
		Candidates: candidates,
		Pipeline:   p,
		now:        time.Now,
	}
}

// SetClock 替换内部时钟（仅测试使用）。
func (r *Ranker) SetClock(now func() time.Time) {
	r.now = now
}

// GetFeed 返回一页排序后的 Feed。
func (r *Ranker) GetFeed(ctx context.Context, fctx *core.FeedContext) (*Page, error) {
	// 命中路径：O(1) 缓存查找
	if raw, err := r.Cache.Get(ctx, fctx.FeedType, fctx.UserID, fctx.Page); err == nil {
		if page, decodeErr := DecodePage(raw); decodeErr == nil {
			return page, nil
		}
		// 载荷无法解码按 miss 处理，走计算路径覆盖
	}
	// miss / UNAVAILABLE 统一走计算路径：缓存是优化，不是正确性依赖

	// 在候选计算开始前捕获代际；读不到按 0，TTL 兜底
	gen, _ := r.Cache.Generation(ctx, fctx.UserID)

	items, err := r.Candidates.Fetch(ctx, fctx)
	if err != nil {
		return nil, err
	}

	ranked, err := r.Pipeline.Run(ctx, fctx, items)
	if err != nil {
		return nil, err
	}

	page := buildPage(fctx, ranked, r.now())
	payload, err := EncodePage(page)
	if err != nil {
		return nil, err
	}

	// 写入失败（后端不可达/计算期间发生失效）不影响本次响应：
	// 最坏情况是一次未缓存的完整计算
	_ = r.Cache.Set(ctx, fctx.FeedType, fctx.UserID, fctx.Page, payload, gen)

	return page, nil
}
