package feature

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/feedkit/core"
)

// 信号缓存 TTL：用户级画像 30 分钟，用户×候选级 1 小时。
const (
	userSignalsTTLSeconds     = 60 * 30
	userItemSignalsTTLSeconds = 60 * 60
)

// StoreSignals 从 KV 存储读取观看者亲和信号。
//
// 两级 key：
//   - feat:user:{userID}:global            用户级画像（JSON）
//   - feat:user:{userID}:item:{itemID}     用户×候选级信号（JSON），覆盖用户级
//
// 取不到的字段落到 Defaults（与 StaticSignals 的默认值一致）。
type StoreSignals struct {
	store    core.Store
	Defaults core.ViewerSignals
}

// signalBlob 是存储中的 JSON 形态；指针字段区分“缺失”与“显式 0”。
type signalBlob struct {
	CategoryMatch      *float64 `json:"categoryMatch,omitempty"`
	AuthorAffinity     *float64 `json:"authorAffinity,omitempty"`
	PastBehavior       *float64 `json:"pastBehavior,omitempty"`
	SocialGraph        *float64 `json:"socialGraph,omitempty"`
	AvgWatchCompletion *float64 `json:"avgWatchCompletion,omitempty"`
}

func (b *signalBlob) apply(dst *core.ViewerSignals) {
	if b.CategoryMatch != nil {
		dst.CategoryMatch = *b.CategoryMatch
	}
	if b.AuthorAffinity != nil {
		dst.AuthorAffinity = *b.AuthorAffinity
	}
	if b.PastBehavior != nil {
		dst.PastBehavior = *b.PastBehavior
	}
	if b.SocialGraph != nil {
		dst.SocialGraph = *b.SocialGraph
	}
	if b.AvgWatchCompletion != nil {
		dst.AvgWatchCompletion = *b.AvgWatchCompletion
	}
}

func NewStoreSignals(s core.Store) *StoreSignals {
	return &StoreSignals{
		store:    s,
		Defaults: NewStaticSignals().Defaults,
	}
}

func (s *StoreSignals) Name() string { return "signals.store" }

func userSignalsKey(userID string) string {
	return fmt.Sprintf("feat:user:%s:global", userID)
}

func userItemSignalsKey(userID, itemID string) string {
	return fmt.Sprintf("feat:user:%s:item:%s", userID, itemID)
}

func (s *StoreSignals) ViewerItemSignals(ctx context.Context, userID string, itemIDs []string) (map[string]core.ViewerSignals, error) {
	keys := make([]string, 0, len(itemIDs)+1)
	keys = append(keys, userSignalsKey(userID))
	for _, id := range itemIDs {
		keys = append(keys, userItemSignalsKey(userID, id))
	}

	vals, err := s.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("signals batch get: %w", err)
	}

	base := s.Defaults
	if raw, ok := vals[userSignalsKey(userID)]; ok {
		var blob signalBlob
		if json.Unmarshal(raw, &blob) == nil {
			blob.apply(&base)
		}
	}

	out := make(map[string]core.ViewerSignals, len(itemIDs))
	for _, id := range itemIDs {
		sig := base
		if raw, ok := vals[userItemSignalsKey(userID, id)]; ok {
			var blob signalBlob
			if json.Unmarshal(raw, &blob) == nil {
				blob.apply(&sig)
			}
		}
		out[id] = sig
	}
	return out, nil
}

// SetUserSignals 写入用户级画像信号（30 分钟 TTL）。
func (s *StoreSignals) SetUserSignals(ctx context.Context, userID string, sig core.ViewerSignals) error {
	return s.setBlob(ctx, userSignalsKey(userID), sig, userSignalsTTLSeconds)
}

// SetUserItemSignals 写入用户×候选级信号（1 小时 TTL）。
func (s *StoreSignals) SetUserItemSignals(ctx context.Context, userID, itemID string, sig core.ViewerSignals) error {
	return s.setBlob(ctx, userItemSignalsKey(userID, itemID), sig, userItemSignalsTTLSeconds)
}

func (s *StoreSignals) setBlob(ctx context.Context, key string, sig core.ViewerSignals, ttl int) error {
	blob := signalBlob{
		CategoryMatch:      &sig.CategoryMatch,
		AuthorAffinity:     &sig.AuthorAffinity,
		PastBehavior:       &sig.PastBehavior,
		SocialGraph:        &sig.SocialGraph,
		AvgWatchCompletion: &sig.AvgWatchCompletion,
	}
	raw, err := json.Marshal(&blob)
	if err != nil {
		return fmt.Errorf("signals marshal: %w", err)
	}
	return s.store.Set(ctx, key, raw, ttl)
}

func (s *StoreSignals) Close(_ context.Context) error { return nil }

// 确保 StoreSignals 实现了 core.SignalService 接口
var _ core.SignalService = (*StoreSignals)(nil)
