// Package feedkit 是一个个性化 Feed 排序工具包（Feed Ranking Kit）。
//
// 设计要点：
// - Cache-first: FeedCache 吸收读放大，命中路径不触碰特征与打分
// - Pipeline-first: 排序逻辑通过 Node 串联（Recall → Feature → Rank → ReRank）
// - Labels-first: labels 全链路透传（recall_source / score_source / boost），支持 explain / 观测
// - 降级优先: 打分服务故障时回退保底分，请求永不因模型不可用而失败
package feedkit

import "github.com/rushteam/feedkit/pipeline"

// 轻量 facade：便于用户直接 import "feedkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall  = pipeline.KindRecall
	KindFilter  = pipeline.KindFilter
	KindFeature = pipeline.KindFeature
	KindRank    = pipeline.KindRank
	KindReRank  = pipeline.KindReRank
)
