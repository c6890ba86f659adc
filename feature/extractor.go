package feature

import (
	"fmt"
	"math"

	"github.com/rushteam/feedkit/core"
)

// Counters 是一条候选的原始互动计数与时间信号。
// H1/H24 是固定时间窗（1 小时 / 24 小时）内的互动量，来自分钟桶计数。
type Counters struct {
	Views    float64
	Likes    float64
	Comments float64
	Shares   float64

	// H1 早窗互动量（1h）
	H1 float64
	// H24 晚窗互动量（24h）
	H24 float64

	// RecencyMinutes 距创建时间的分钟数
	RecencyMinutes float64
}

// Extractor 将原始计数与观看者亲和信号组装成规范顺序的特征向量。
// 纯计算，无网络与可变状态，不会阻塞或重试。
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract 生成特征向量。
// 任何计数为负或非有限值（NaN/Inf）返回 INVALID_INPUT 领域错误：
// 这类错误说明上游数据契约被破坏，应向调用方传播而不是吞掉。
func (e *Extractor) Extract(c Counters, s core.ViewerSignals) (*Vector, error) {
	if err := validateCounters(c); err != nil {
		return nil, err
	}
	if err := validateSignals(s); err != nil {
		return nil, err
	}

	return &Vector{
		Views:                  c.Views,
		Likes:                  c.Likes,
		Comments:               c.Comments,
		Shares:                 c.Shares,
		Velocity:               Velocity(c.H1, c.H24),
		RecencyMinutes:         c.RecencyMinutes,
		AvgWatchCompletion:     s.AvgWatchCompletion,
		PositiveReactionsRatio: PositiveReactionsRatio(c.Likes, c.Views),
		UserCategoryMatch:      s.CategoryMatch,
		UserAuthorAffinity:     s.AuthorAffinity,
		PastBehaviorScore:      s.PastBehavior,
		SocialGraph:            s.SocialGraph,
	}, nil
}

func validateCounters(c Counters) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"views", c.Views},
		{"likes", c.Likes},
		{"comments", c.Comments},
		{"shares", c.Shares},
		{"h1", c.H1},
		{"h24", c.H24},
		{"recencyMinutes", c.RecencyMinutes},
	}
	for _, f := range fields {
		if f.v < 0 || !isFinite(f.v) {
			return core.NewInvalidInputError(
				fmt.Sprintf("feature: counter %q is negative or non-finite: %v", f.name, f.v))
		}
	}
	return nil
}

func validateSignals(s core.ViewerSignals) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"userCategoryMatch", s.CategoryMatch},
		{"userAuthorAffinity", s.AuthorAffinity},
		{"pastBehaviorScore", s.PastBehavior},
		{"socialGraph", s.SocialGraph},
		{"avgWatchCompletion", s.AvgWatchCompletion},
	}
	for _, f := range fields {
		if f.v < 0 || !isFinite(f.v) {
			return core.NewInvalidInputError(
				fmt.Sprintf("feature: signal %q is negative or non-finite: %v", f.name, f.v))
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
