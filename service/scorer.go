package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/feature"
)

// ScorerClient 是远程打分服务的 HTTP 客户端实现。
//
// 契约：
//   - 请求：POST Endpoint，请求体为规范顺序的特征向量 JSON
//   - 响应：JSON，必须包含数值 score 字段；缺失或畸形一律视为失败，
//     不把静默的 0 当成功返回（监控需要区分两者）
//   - 成功分数 clamp 到 [0,1]
//   - 单次调用最多一次网络请求，不做内部重试；Feed 请求的尾延迟
//     由 per-call 超时兜底
//   - 任何失败（超时/连接/畸形响应/熔断开启）降级为
//     {score: 0, source: fallback} 并记录到 Monitor，不向调用方报错：
//     scorer 不可用永远不该让 Feed 请求失败
//
// 跨请求的熔断策略由 gobreaker 承担：连续失败达到阈值后打开熔断器，
// 后续调用直接降级、不再触网，半开探测恢复。
type ScorerClient struct {
	// Endpoint 打分端点完整 URL，例如 "http://localhost:9000/predict"
	Endpoint string

	// HealthEndpoint 健康检查 URL；为空时按 Endpoint 推导（/predict → /health）
	HealthEndpoint string

	// Timeout 单次调用超时时间
	Timeout time.Duration

	// Auth 认证信息（可选）
	Auth *AuthConfig

	// Monitor 打分观测（可选）
	Monitor *ScoringMonitor

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[float64]
}

// AuthConfig 认证配置
type AuthConfig struct {
	Type     string // "basic", "bearer", "api_key"
	Username string
	Password string
	Token    string
	APIKey   string
}

// ScorerOption ScorerClient 配置选项
type ScorerOption func(*ScorerClient)

// WithScorerTimeout 设置单次调用超时时间
func WithScorerTimeout(timeout time.Duration) ScorerOption {
	return func(c *ScorerClient) {
		c.Timeout = timeout
	}
}

// WithScorerAuth 设置认证信息
func WithScorerAuth(auth *AuthConfig) ScorerOption {
	return func(c *ScorerClient) {
		c.Auth = auth
	}
}

// WithScorerMonitor 设置打分观测
func WithScorerMonitor(m *ScoringMonitor) ScorerOption {
	return func(c *ScorerClient) {
		c.Monitor = m
	}
}

// WithScorerHealthEndpoint 设置健康检查 URL
func WithScorerHealthEndpoint(url string) ScorerOption {
	return func(c *ScorerClient) {
		c.HealthEndpoint = url
	}
}

// NewScorerClient 创建打分客户端。
func NewScorerClient(endpoint string, opts ...ScorerOption) *ScorerClient {
	c := &ScorerClient{
		Endpoint: endpoint,
		Timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient = &http.Client{Timeout: c.Timeout}
	c.breaker = gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        "scorer",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

// Score 实现 core.ScoringService 接口。
func (c *ScorerClient) Score(ctx context.Context, instance []float64) core.ScoreResult {
	start := time.Now()

	score, err := c.breaker.Execute(func() (float64, error) {
		return c.predict(ctx, instance)
	})
	if err != nil {
		c.Monitor.RecordFallback(err)
		return core.ScoreResult{Score: core.FallbackScore, Source: core.ScoreSourceFallback}
	}

	c.Monitor.RecordModel(time.Since(start))
	return core.ScoreResult{Score: core.ClampScore(score), Source: core.ScoreSourceModel}
}

// predict 发起一次打分请求。
func (c *ScorerClient) predict(ctx context.Context, instance []float64) (float64, error) {
	vec, ok := feature.FromValues(instance)
	if !ok {
		return 0, fmt.Errorf("instance length mismatch: expected %d, got %d", feature.NumFields, len(instance))
	}

	jsonData, err := json.Marshal(vec)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("scorer error: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		Score *float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if result.Score == nil {
		return 0, fmt.Errorf("response missing score field")
	}
	return *result.Score, nil
}

// addAuth 添加认证信息到 HTTP 请求
func (c *ScorerClient) addAuth(req *http.Request) {
	if c.Auth == nil {
		return
	}
	switch c.Auth.Type {
	case "basic":
		req.SetBasicAuth(c.Auth.Username, c.Auth.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.Auth.Token)
	case "api_key":
		req.Header.Set("X-API-Key", c.Auth.APIKey)
	}
}

// Health 健康检查。
func (c *ScorerClient) Health(ctx context.Context) error {
	url := c.HealthEndpoint
	if url == "" {
		url = strings.TrimSuffix(c.Endpoint, "/predict") + "/health"
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// Close 关闭连接。
func (c *ScorerClient) Close() error {
	// HTTP 客户端不需要显式关闭
	return nil
}

// 确保 ScorerClient 实现了 core.ScoringService 接口
var _ core.ScoringService = (*ScorerClient)(nil)
