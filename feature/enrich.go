package feature

import (
	"context"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// 候选源写入 Item.Features 的原始计数字段名。
// H1/H24 优先由 CounterStore 实时计算；候选源也可直接预填。
const (
	rawViews    = "views"
	rawLikes    = "likes"
	rawComments = "comments"
	rawShares   = "shares"
	rawH1       = "h1"
	rawH24      = "h24"
)

// EnrichNode 是特征阶段的 Node：为每条候选组装规范特征向量。
//
// 数据来源：
//   - 原始计数：候选源预填在 Item.Features（views/likes/comments/shares）
//   - H1/H24：CounterStore 分钟桶实时求和（取不到按 0，计数缺失不阻塞请求）
//   - 观看者信号：SignalService 批量获取（不可用时降级为默认值）
//   - recencyMinutes：按 Item.CreatedAt 计算
//
// 校验失败（负数/非有限计数）向上传播：那是上游数据 bug，不是基础设施抖动。
type EnrichNode struct {
	Extractor *Extractor

	// Counters 分钟桶计数存储；nil 时使用候选源预填的 h1/h24
	Counters *CounterStore

	// Signals 观看者信号服务；nil 或出错时降级为静态默认值
	Signals core.SignalService

	// now 可注入的时钟，测试中用于固定 recencyMinutes
	now func() time.Time
}

func NewEnrichNode(extractor *Extractor, counters *CounterStore, signals core.SignalService) *EnrichNode {
	return &EnrichNode{
		Extractor: extractor,
		Counters:  counters,
		Signals:   signals,
		now:       time.Now,
	}
}

// SetClock 替换内部时钟（仅测试使用）。
func (n *EnrichNode) SetClock(now func() time.Time) {
	n.now = now
}

func (n *EnrichNode) Name() string        { return "feature.enrich" }
func (n *EnrichNode) Kind() pipeline.Kind { return pipeline.KindFeature }

func (n *EnrichNode) Process(
	ctx context.Context,
	fctx *core.FeedContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	signals := n.fetchSignals(ctx, fctx, items)

	now := n.now()
	for _, it := range items {
		if it == nil {
			continue
		}

		counters := n.countersFor(ctx, it, now)
		sig, ok := signals[it.ID]
		if !ok {
			sig = NewStaticSignals().Defaults
		}

		vec, err := n.Extractor.Extract(counters, sig)
		if err != nil {
			return nil, err
		}
		vec.ToFeatures(it.Features)
		it.PutLabel("feature_vector", utils.Label{Value: "v1", Source: "feature"})
	}
	return items, nil
}

// fetchSignals 批量拉取观看者信号；服务缺失或出错时整体降级为默认值。
func (n *EnrichNode) fetchSignals(ctx context.Context, fctx *core.FeedContext, items []*core.Item) map[string]core.ViewerSignals {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it != nil {
			ids = append(ids, it.ID)
		}
	}

	svc := n.Signals
	if svc == nil {
		svc = NewStaticSignals()
	}
	signals, err := svc.ViewerItemSignals(ctx, fctx.UserID, ids)
	if err != nil {
		// 信号服务不可用：降级，不中断打分链路
		static, _ := NewStaticSignals().ViewerItemSignals(ctx, fctx.UserID, ids)
		return static
	}
	return signals
}

// countersFor 组装单条候选的原始计数。
// 计数存储出错时 H1/H24 按候选源预填值（再缺省为 0）处理。
func (n *EnrichNode) countersFor(ctx context.Context, it *core.Item, now time.Time) Counters {
	c := Counters{
		Views:    it.Features[rawViews],
		Likes:    it.Features[rawLikes],
		Comments: it.Features[rawComments],
		Shares:   it.Features[rawShares],
		H1:       it.Features[rawH1],
		H24:      it.Features[rawH24],
	}

	if !it.CreatedAt.IsZero() {
		c.RecencyMinutes = now.Sub(it.CreatedAt).Minutes()
		if c.RecencyMinutes < 0 {
			c.RecencyMinutes = 0
		}
	}

	if n.Counters != nil {
		if h1, err := n.Counters.SumWindow(ctx, it.ID, "views", 60); err == nil {
			c.H1 = h1
		}
		if h24, err := n.Counters.SumWindow(ctx, it.ID, "views", 1440); err == nil {
			c.H24 = h24
		}
	}
	return c
}
