package feature

import "math"

// 本文件是线上打分与离线训练共享的特征 schema 单一来源：
// 字段顺序、派生公式、正样本阈值都只在这里定义。
// 模型消费方按“位置”而非“名称”取值，因此字段顺序/数量的任何变更
// 都是破坏性变更，需要与模型版本协同发布，不允许静默漂移。

// FieldNames 是特征向量的规范字段顺序（label 列除外）。
var FieldNames = []string{
	"views",
	"likes",
	"comments",
	"shares",
	"velocity",
	"recencyMinutes",
	"avgWatchCompletion",
	"positiveReactionsRatio",
	"userCategoryMatch",
	"userAuthorAffinity",
	"pastBehaviorScore",
	"socialGraph",
}

// NumFields 是特征向量的字段数量。
const NumFields = 12

// PositiveEngagementThreshold 是正样本 ground truth 的唯一判定阈值：
// likes > views*threshold 记为 label=1。生成器与任何评估代码必须共用此常量。
const PositiveEngagementThreshold = 0.02

// Vector 是一条候选的完整特征向量。
// 字段声明顺序与 FieldNames 严格一致；encoding/json 按声明顺序输出，
// 因此序列化结果天然保持规范顺序。
type Vector struct {
	Views                  float64 `json:"views"`
	Likes                  float64 `json:"likes"`
	Comments               float64 `json:"comments"`
	Shares                 float64 `json:"shares"`
	Velocity               float64 `json:"velocity"`
	RecencyMinutes         float64 `json:"recencyMinutes"`
	AvgWatchCompletion     float64 `json:"avgWatchCompletion"`
	PositiveReactionsRatio float64 `json:"positiveReactionsRatio"`
	UserCategoryMatch      float64 `json:"userCategoryMatch"`
	UserAuthorAffinity     float64 `json:"userAuthorAffinity"`
	PastBehaviorScore      float64 `json:"pastBehaviorScore"`
	SocialGraph            float64 `json:"socialGraph"`
}

// Values 按规范顺序返回特征值切片（供按位置消费的模型使用）。
func (v *Vector) Values() []float64 {
	return []float64{
		v.Views,
		v.Likes,
		v.Comments,
		v.Shares,
		v.Velocity,
		v.RecencyMinutes,
		v.AvgWatchCompletion,
		v.PositiveReactionsRatio,
		v.UserCategoryMatch,
		v.UserAuthorAffinity,
		v.PastBehaviorScore,
		v.SocialGraph,
	}
}

// ToFeatures 将向量写入 map（供 Item.Features / 观测使用）。
func (v *Vector) ToFeatures(dst map[string]float64) {
	vals := v.Values()
	for i, name := range FieldNames {
		dst[name] = vals[i]
	}
}

// FromFeatures 从 map 重建向量；缺失字段按 0 处理。
func FromFeatures(m map[string]float64) *Vector {
	return &Vector{
		Views:                  m["views"],
		Likes:                  m["likes"],
		Comments:               m["comments"],
		Shares:                 m["shares"],
		Velocity:               m["velocity"],
		RecencyMinutes:         m["recencyMinutes"],
		AvgWatchCompletion:     m["avgWatchCompletion"],
		PositiveReactionsRatio: m["positiveReactionsRatio"],
		UserCategoryMatch:      m["userCategoryMatch"],
		UserAuthorAffinity:     m["userAuthorAffinity"],
		PastBehaviorScore:      m["pastBehaviorScore"],
		SocialGraph:            m["socialGraph"],
	}
}

// FromValues 从规范顺序的切片重建向量；长度不符返回 false。
func FromValues(vals []float64) (*Vector, bool) {
	if len(vals) != NumFields {
		return nil, false
	}
	return &Vector{
		Views:                  vals[0],
		Likes:                  vals[1],
		Comments:               vals[2],
		Shares:                 vals[3],
		Velocity:               vals[4],
		RecencyMinutes:         vals[5],
		AvgWatchCompletion:     vals[6],
		PositiveReactionsRatio: vals[7],
		UserCategoryMatch:      vals[8],
		UserAuthorAffinity:     vals[9],
		PastBehaviorScore:      vals[10],
		SocialGraph:            vals[11],
	}, true
}

// Velocity 把 H1 早期互动量归一到可横向比较的“每小时速率”：
// H24>0 时为 H1 / max(1, H24/24)，分母下限 1 防止除零；否则直接取 H1。
// 线上抽取与离线生成必须共用此函数。
func Velocity(h1, h24 float64) float64 {
	if h24 > 0 {
		return h1 / math.Max(1, h24/24)
	}
	return h1
}

// PositiveReactionsRatio 计算 likes/views，分母下限 1 防止除零。
func PositiveReactionsRatio(likes, views float64) float64 {
	return likes / math.Max(1, views)
}
