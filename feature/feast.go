package feature

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/feedkit/core"
)

// Feast 在线存储中的特征视图与字段名约定。
// 字段语义与 core.ViewerSignals 一一对应。
const (
	defaultFeastFeatureView = "viewer_item_stats"

	feastFieldCategoryMatch      = "category_match"
	feastFieldAuthorAffinity     = "author_affinity"
	feastFieldPastBehavior       = "past_behavior"
	feastFieldSocialGraph        = "social_graph"
	feastFieldAvgWatchCompletion = "avg_watch_completion"
)

// FeastSignals 是基于官方 Feast Go SDK 的观看者信号服务。
//
// Feast 是开源的 Feature Store，在线存储面向实时预测；这里按
// (user_id, item_id) 实体对批量拉取亲和信号。
//
// 工程特征：
//   - 实时性：好（gRPC 低延迟、批量请求）
//   - 可扩展性：强（特征视图由 Feast 侧注册管理）
//
// 取不到的字段落到 Defaults，信号缺失不阻塞打分链路。
type FeastSignals struct {
	client *feastsdk.GrpcClient

	// Project Feast 项目名称
	Project string

	// FeatureView 特征视图名称（默认 viewer_item_stats）
	FeatureView string

	// Defaults 字段缺失时的默认值
	Defaults core.ViewerSignals
}

// NewFeastSignals 创建 Feast 信号服务。
//
// 参数：
//   - host: Feast Feature Server 主机地址，例如 "localhost"
//   - port: gRPC 端口，默认 6565
//   - project: 项目名称
func NewFeastSignals(host string, port int, project string) (*FeastSignals, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}
	return &FeastSignals{
		client:      client,
		Project:     project,
		FeatureView: defaultFeastFeatureView,
		Defaults:    NewStaticSignals().Defaults,
	}, nil
}

func (s *FeastSignals) Name() string { return "signals.feast" }

func (s *FeastSignals) featureRefs() []string {
	fields := []string{
		feastFieldCategoryMatch,
		feastFieldAuthorAffinity,
		feastFieldPastBehavior,
		feastFieldSocialGraph,
		feastFieldAvgWatchCompletion,
	}
	refs := make([]string, len(fields))
	for i, f := range fields {
		refs[i] = s.FeatureView + ":" + f
	}
	return refs
}

func (s *FeastSignals) ViewerItemSignals(ctx context.Context, userID string, itemIDs []string) (map[string]core.ViewerSignals, error) {
	if len(itemIDs) == 0 {
		return map[string]core.ViewerSignals{}, nil
	}

	entities := make([]feastsdk.Row, len(itemIDs))
	for i, id := range itemIDs {
		entities[i] = feastsdk.Row{
			"user_id": feastsdk.StrVal(userID),
			"item_id": feastsdk.StrVal(id),
		}
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: s.featureRefs(),
		Entities: entities,
		Project:  s.Project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) != len(itemIDs) {
		return nil, fmt.Errorf("feast response row count mismatch: expected %d, got %d", len(itemIDs), len(rows))
	}

	out := make(map[string]core.ViewerSignals, len(itemIDs))
	for i, id := range itemIDs {
		sig := s.Defaults
		row := rows[i]
		if v, ok := rowFloat(row, s.FeatureView+":"+feastFieldCategoryMatch); ok {
			sig.CategoryMatch = v
		}
		if v, ok := rowFloat(row, s.FeatureView+":"+feastFieldAuthorAffinity); ok {
			sig.AuthorAffinity = v
		}
		if v, ok := rowFloat(row, s.FeatureView+":"+feastFieldPastBehavior); ok {
			sig.PastBehavior = v
		}
		if v, ok := rowFloat(row, s.FeatureView+":"+feastFieldSocialGraph); ok {
			sig.SocialGraph = v
		}
		if v, ok := rowFloat(row, s.FeatureView+":"+feastFieldAvgWatchCompletion); ok {
			sig.AvgWatchCompletion = v
		}
		out[id] = sig
	}
	return out, nil
}

// rowFloat 从 SDK 返回的行中取单个特征值并转为 float64。
// SDK 的 Value 是 protobuf 包装类型，按实际承载类型展开。
func rowFloat(row feastsdk.Row, name string) (float64, bool) {
	val, ok := row[name]
	if !ok || val == nil {
		return 0, false
	}

	switch v := val.Val.(type) {
	case *feasttypes.Value_DoubleVal:
		return v.DoubleVal, true
	case *feasttypes.Value_FloatVal:
		return float64(v.FloatVal), true
	case *feasttypes.Value_Int64Val:
		return float64(v.Int64Val), true
	case *feasttypes.Value_Int32Val:
		return float64(v.Int32Val), true
	case *feasttypes.Value_BoolVal:
		if v.BoolVal {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (s *FeastSignals) Close(_ context.Context) error {
	// 官方 SDK 没有显式的 Close 方法，gRPC 连接由库管理
	s.client = nil
	return nil
}

// 确保 FeastSignals 实现了 core.SignalService 接口
var _ core.SignalService = (*FeastSignals)(nil)
