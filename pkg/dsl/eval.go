package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/feedkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("fctx", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Rule 是基于 CEL (Common Expression Language) 的布尔规则。
// 表达式编译一次，可对任意多个 item 求值（线程安全）。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.score_source == "fallback" / label.recall_source != null
//   - 数值：item.score > 0.7 / item.features.velocity >= 10.0
//   - 逻辑：label.recall_source == "following" && item.score > 0.5
//   - 包含：label.recall_source.contains("video")
//   - 请求上下文：fctx.feed_type == "video" / fctx.user_id == "u1"
//
// 示例：
//   - `label.score_source == "model" && item.score > 0.8` → 高置信分数
//   - `fctx.feed_type == "video" && item.features.velocity > 5.0` → 高速视频
type Rule struct {
	expr string
	prg  cel.Program
}

// NewRule 编译一个 CEL 规则表达式。空表达式恒为 true。
func NewRule(expr string) (*Rule, error) {
	r := &Rule{expr: expr}
	if expr == "" {
		return r, nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}
	r.prg = prg
	return r, nil
}

// Matches 对单个 item 执行规则，返回布尔结果。
// 注意：CEL 访问不存在的 key 会报错，存在性检查请使用 label.key != null。
func (r *Rule) Matches(item *core.Item, fctx *core.FeedContext) (bool, error) {
	if r.prg == nil {
		return true, nil
	}

	out, _, err := r.prg.Eval(buildInput(item, fctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(it *core.Item, fctx *core.FeedContext) map[string]interface{} {
	labels := make(map[string]interface{})
	labelAccessor := make(map[string]interface{})
	if it != nil {
		for k, v := range it.Labels {
			labels[k] = map[string]interface{}{
				"value":  v.Value,
				"source": v.Source,
			}
			// label.score_source 直接返回 value，兼容简写
			labelAccessor[k] = v.Value
		}
	}

	item := map[string]interface{}{}
	if it != nil {
		item = map[string]interface{}{
			"id":       it.ID,
			"score":    it.Score,
			"features": it.Features,
			"meta":     it.Meta,
			"labels":   labels,
		}
	}

	fc := map[string]interface{}{}
	if fctx != nil {
		fc = map[string]interface{}{
			"user_id":   fctx.UserID,
			"feed_type": fctx.FeedType,
			"page":      fctx.Page,
			"params":    fctx.Params,
		}
	}

	return map[string]interface{}{
		"item":  item,
		"label": labelAccessor,
		"fctx":  fc,
	}
}
