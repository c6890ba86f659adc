package core

import "context"

// ViewerSignals 是“观看者 × 候选”的亲和信号，来自特征存储/画像系统。
// 取不到时使用零值（与线上冷启动行为一致）。
type ViewerSignals struct {
	// CategoryMatch 观看者兴趣与候选类目的匹配度 [0,1]
	CategoryMatch float64

	// AuthorAffinity 观看者与作者的历史亲和度 [0,1]
	AuthorAffinity float64

	// PastBehavior 观看者对同类内容的历史行为分 [0,1]
	PastBehavior float64

	// SocialGraph 社交图邻近计数（共同关注/互关等）
	SocialGraph float64

	// AvgWatchCompletion 候选的平均完播率 [0,1]
	AvgWatchCompletion float64
}

// SignalService 是观看者亲和信号的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（feature）实现
//   - 信号服务不可用时由调用方降级为 StaticSignals，不阻塞打分链路
//
// 实现：
//   - feature.StaticSignals（固定默认值，冷启动/降级）
//   - feature.StoreSignals（KV 存储中的用户画像 JSON）
//   - feature.FeastSignals（Feast 在线特征存储）
type SignalService interface {
	// Name 返回信号服务名称（用于日志/监控）
	Name() string

	// ViewerItemSignals 批量获取一个观看者对一组候选的亲和信号。
	// 返回 map 以 itemID 为 key；缺失的 item 由调用方补默认值。
	ViewerItemSignals(ctx context.Context, userID string, itemIDs []string) (map[string]ViewerSignals, error)

	// Close 关闭信号服务，释放资源
	Close(ctx context.Context) error
}
