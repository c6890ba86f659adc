package rank

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/feature"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// ScoreNode 是排序 Node：对每条候选调用远程打分服务并按分数排序。
//
// 并发模型：
//   - 候选之间的打分相互独立，按 MaxConcurrent 并发执行
//   - 每次调用带 Timeout 超时；请求级 ctx 取消后剩余候选的调用
//     立即失败并落到降级分数，不会无限等待
//   - 部分候选降级、部分成功时照常排序（降级即分数 0，属预期行为）
//
// 写入 labels：
//   - score_source: model / fallback（观测与测试用，不对终端用户暴露）
type ScoreNode struct {
	Scorer core.ScoringService

	// MaxConcurrent 最大并发打分数（0 表示不限制）
	MaxConcurrent int

	// Timeout 单条候选的打分超时（0 表示仅依赖客户端超时）
	Timeout time.Duration
}

func (n *ScoreNode) Name() string        { return "rank.score" }
func (n *ScoreNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ScoreNode) Process(
	ctx context.Context,
	_ *core.FeedContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Scorer == nil || len(items) == 0 {
		return items, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		item := it

		eg.Go(func() error {
			scoreCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				scoreCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			instance := feature.FromFeatures(item.Features).Values()
			res := n.Scorer.Score(scoreCtx, instance)

			// Score 永不返回 error，item 之间无共享写，直接赋值即可
			item.Score = res.Score
			item.PutLabel("score_source", utils.Label{Value: string(res.Source), Source: "rank"})
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	core.SortRanked(items)
	return items, nil
}
