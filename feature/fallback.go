package feature

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// StaticSignals 是默认降级信号源：信号服务不可用或用户无画像
//（冷启动）时，为所有候选返回同一组固定默认值。
// 默认值与线上历史行为保持一致：亲和信号取 0，完播率取 0.5。
type StaticSignals struct {
	Defaults core.ViewerSignals
}

func NewStaticSignals() *StaticSignals {
	return &StaticSignals{
		Defaults: core.ViewerSignals{
			AvgWatchCompletion: 0.5,
		},
	}
}

func (s *StaticSignals) Name() string { return "signals.static" }

func (s *StaticSignals) ViewerItemSignals(_ context.Context, _ string, itemIDs []string) (map[string]core.ViewerSignals, error) {
	out := make(map[string]core.ViewerSignals, len(itemIDs))
	for _, id := range itemIDs {
		out[id] = s.Defaults
	}
	return out, nil
}

func (s *StaticSignals) Close(_ context.Context) error { return nil }

// 确保 StaticSignals 实现了 core.SignalService 接口
var _ core.SignalService = (*StaticSignals)(nil)
