package rerank

import (
	"context"
	"fmt"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/dsl"
	"github.com/rushteam/feedkit/pkg/utils"
)

// BoostRule 是一条加权规则：When 命中时将分数乘以 Multiplier。
// 规则名会写入 boost label，方便 explain / 观测。
type BoostRule struct {
	Name       string
	When       *dsl.Rule
	Multiplier float64
}

// NewBoostRule 编译一条加权规则。expr 使用 CEL 语法，例如：
//
//	`label.recall_source == "following"`          关注流候选加权
//	`item.features.velocity > 10.0`               高速内容加权
func NewBoostRule(name, expr string, multiplier float64) (BoostRule, error) {
	rule, err := dsl.NewRule(expr)
	if err != nil {
		return BoostRule{}, fmt.Errorf("boost rule %s: %w", name, err)
	}
	return BoostRule{Name: name, When: rule, Multiplier: multiplier}, nil
}

// BoostNode 是重排 Node：按业务规则对分数做乘法加权，然后重新排序。
// 规则求值出错时跳过该条规则（业务调优不应导致请求失败）。
type BoostNode struct {
	Rules []BoostRule
}

func (n *BoostNode) Name() string        { return "rerank.boost" }
func (n *BoostNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *BoostNode) Process(
	_ context.Context,
	fctx *core.FeedContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Rules) == 0 || len(items) == 0 {
		return items, nil
	}

	changed := false
	for _, it := range items {
		if it == nil {
			continue
		}
		for _, rule := range n.Rules {
			ok, err := rule.When.Matches(it, fctx)
			if err != nil || !ok {
				continue
			}
			it.Score *= rule.Multiplier
			it.PutLabel("boost", utils.Label{Value: rule.Name, Source: "rerank"})
			changed = true
		}
	}

	if changed {
		core.SortRanked(items)
	}
	return items, nil
}
