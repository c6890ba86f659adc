package recall

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// Fanout 并发拉取多个候选源并合并结果（例如 video + post 混合流）。
// 合并规则：按 ID 去重（保留先到的），整体按 CreatedAt 新者在前。
// 单个源失败/超时不影响其他源，只是少一路候选。
type Fanout struct {
	Sources []Source

	// Timeout 每个候选源的超时时间
	Timeout time.Duration

	// MaxConcurrent 最大并发数（0 表示无限制）
	MaxConcurrent int
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，忽略输入 items，直接产出候选。
func (n *Fanout) Process(
	ctx context.Context,
	fctx *core.FeedContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return n.Fetch(ctx, fctx)
}

// Fetch 实现 Source 接口，Fanout 本身可以作为上层的单一候选源。
func (n *Fanout) Fetch(
	ctx context.Context,
	fctx *core.FeedContext,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	var (
		mu  sync.Mutex
		all []*core.Item
	)
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for _, src := range n.Sources {
		s := src

		eg.Go(func() error {
			fetchCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := s.Fetch(fetchCtx, fctx)
			if err != nil {
				// 单路候选源失败不中断其他源
				return nil
			}

			// 记录候选来源 label，方便 explain / 观测
			for _, it := range items {
				if it != nil {
					it.PutLabel("recall_source", utils.Label{Value: s.Name(), Source: "recall"})
				}
			}

			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return mergeByRecency(all), nil
}

// mergeByRecency 按 ID 去重（保留先到的，合并 labels），
// 并按 CreatedAt 新者在前排序，作为打分前的初始顺序。
func mergeByRecency(all []*core.Item) []*core.Item {
	seen := make(map[string]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}

	core.SortRanked(out) // 此时 Score 均为 0，等价于纯按新鲜度排序
	return out
}

// 确保 Fanout 同时实现了 Source 和 Node 接口
var _ Source = (*Fanout)(nil)
var _ pipeline.Node = (*Fanout)(nil)
