package core

import "context"

// ScoreSource 标识一次打分结果的来源：真实模型预测，还是降级兜底。
// 该字段不对终端用户暴露，但必须可观测（labels/监控/测试依赖它区分
// 置信分数与降级分数）。
type ScoreSource string

const (
	// ScoreSourceModel 表示来自远程模型服务的真实预测
	ScoreSourceModel ScoreSource = "model"

	// ScoreSourceFallback 表示远程服务失败后的降级分数（固定为 0）
	ScoreSourceFallback ScoreSource = "fallback"
)

// FallbackScore 是远程打分不可用时使用的降级分值。
const FallbackScore = 0.0

// ScoreResult 是单次打分的结果。Score 恒在 [0,1] 区间内。
type ScoreResult struct {
	Score  float64
	Source ScoreSource
}

// ScoringService 是打分服务的领域接口。
//
// 约定：
//   - Score 永不返回 error：任何失败（超时/连接/响应畸形/熔断开启）
//     都在实现内部转为 {FallbackScore, fallback} 并记录，Feed 请求
//     不会因 scorer 不可用而失败
//   - 单次调用最多一次网络请求，不做内部重试；跨请求的重试/熔断
//     策略属于实现的构造配置
//   - 除一次出站调用外无副作用，调用方取消 ctx 可安全中止
//
// 实现：
//   - service.ScorerClient 实现此接口（HTTP + 熔断器）
type ScoringService interface {
	// Score 对一条特征向量打分
	Score(ctx context.Context, instance []float64) ScoreResult

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 关闭连接
	Close() error
}

// ClampScore 将任意模型输出收敛到合法区间 [0,1]。
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
