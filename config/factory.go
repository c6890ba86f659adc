package config

import (
	"fmt"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/feature"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/conv"
	"github.com/rushteam/feedkit/rank"
	"github.com/rushteam/feedkit/recall"
	"github.com/rushteam/feedkit/rerank"
)

// Deps 持有配置无法表达的运行期依赖（已连接的服务与存储）。
// 纯配置能构建的 Node（rerank.topn / rerank.boost）不需要它。
type Deps struct {
	// Scorer 打分服务（rank.score 需要）
	Scorer core.ScoringService

	// Signals 观看者信号源（feature.enrich 需要，nil 时用静态默认值）
	Signals core.SignalService

	// Counters 分钟桶计数存储（feature.enrich 可选）
	Counters *feature.CounterStore

	// Sources 候选源注册表，recall.fanout 按名字引用
	Sources map[string]recall.Source
}

// NewFactory 构建包含全部内置 Node 的工厂。
// 需要运行期依赖的 builder 闭包持有 deps。
func NewFactory(deps *Deps) *pipeline.NodeFactory {
	if deps == nil {
		deps = &Deps{}
	}
	factory := pipeline.NewNodeFactory()

	// Recall Nodes
	factory.Register("recall.fanout", buildFanoutNode(deps))

	// Feature Nodes
	factory.Register("feature.enrich", buildEnrichNode(deps))

	// Rank Nodes
	factory.Register("rank.score", buildScoreNode(deps))

	// ReRank Nodes
	factory.Register("rerank.boost", buildBoostNode)
	factory.Register("rerank.topn", buildTopNNode)

	return factory
}

func buildFanoutNode(deps *Deps) NodeBuilder {
	return func(config map[string]interface{}) (pipeline.Node, error) {
		names := conv.SliceAnyToString(config["sources"])
		if len(names) == 0 {
			return nil, fmt.Errorf("sources not found or empty")
		}

		sources := make([]recall.Source, 0, len(names))
		for _, name := range names {
			src, ok := deps.Sources[name]
			if !ok {
				return nil, fmt.Errorf("unknown candidate source: %s", name)
			}
			sources = append(sources, src)
		}

		fanout := &recall.Fanout{Sources: sources}
		if sec := conv.ConfigGetInt64(config, "timeout", 0); sec > 0 {
			fanout.Timeout = time.Duration(sec) * time.Second
		}
		if n := conv.ConfigGetInt64(config, "max_concurrent", 0); n > 0 {
			fanout.MaxConcurrent = int(n)
		}
		return fanout, nil
	}
}

func buildEnrichNode(deps *Deps) NodeBuilder {
	return func(config map[string]interface{}) (pipeline.Node, error) {
		signals := deps.Signals
		if signals == nil {
			// 无信号源时退化为静态默认值，特征向量依然完整
			signals = feature.NewStaticSignals()
		}
		return feature.NewEnrichNode(feature.NewExtractor(), deps.Counters, signals), nil
	}
}

func buildScoreNode(deps *Deps) NodeBuilder {
	return func(config map[string]interface{}) (pipeline.Node, error) {
		if deps.Scorer == nil {
			return nil, fmt.Errorf("scoring service not configured")
		}
		node := &rank.ScoreNode{Scorer: deps.Scorer}
		if n := conv.ConfigGetInt64(config, "max_concurrent", 0); n > 0 {
			node.MaxConcurrent = int(n)
		}
		if ms := conv.ConfigGetInt64(config, "timeout_ms", 0); ms > 0 {
			node.Timeout = time.Duration(ms) * time.Millisecond
		}
		return node, nil
	}
}

func buildBoostNode(config map[string]interface{}) (pipeline.Node, error) {
	rulesConfig, ok := config["rules"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("rules not found or invalid")
	}

	rules := make([]rerank.BoostRule, 0, len(rulesConfig))
	for _, rc := range rulesConfig {
		ruleMap, ok := rc.(map[string]interface{})
		if !ok {
			continue
		}
		name := conv.ConfigGet[string](ruleMap, "name", "")
		expr := conv.ConfigGet[string](ruleMap, "when", "")
		multiplier := conv.ConfigGetFloat64(ruleMap, "multiplier", 1.0)

		rule, err := rerank.NewBoostRule(name, expr, multiplier)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return &rerank.BoostNode{Rules: rules}, nil
}

func buildTopNNode(config map[string]interface{}) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(config, "n", 0)
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive")
	}
	return &rerank.TopNNode{N: int(n)}, nil
}
