package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rushteam/feedkit/core"
)

// DefaultTTLSeconds 是 Feed 页缓存的默认 TTL。
// 短 TTL 同时是失效竞态的兜底：即使代际检查输掉竞争，
// 脏数据的最大存活窗口也被 TTL 限制。
const DefaultTTLSeconds = 15

// 代际 token 的保留时长。必须远大于页缓存 TTL，防止 token 先于
// 页条目过期导致代际回绕；1 小时绰绰有余。
const generationTTLSeconds = 60 * 60

// 缓存错误定义
var (
	// ErrCacheMiss 表示该页未缓存（或已过期/已失效）。
	// 注意与“缓存了空页”区分：空页是合法命中，信封让它非空。
	ErrCacheMiss = core.NewDomainError(core.ModuleCache, core.ErrorCodeNotFound, "cache: feed page not cached")

	// ErrStaleWrite 表示写入被丢弃：计算开始后发生过用户级失效。
	// 调用方照常返回已计算的结果即可（只是不缓存）。
	ErrStaleWrite = core.NewDomainError(core.ModuleCache, core.ErrorCodeInternalError, "cache: write dropped, user invalidated during compute")
)

// FeedCache 缓存排序后的 Feed 页，吸收读放大。
//
// key 结构：feed:{feedType}:{userID}:{page}，唯一标识一页。
// 载荷对缓存是不透明的序列化字节，FeedCache 不解释排序内容，
// 条目生命周期由本组件独占管理。
//
// 按用户失效不依赖后端的前缀扫描能力：每个用户维护一个活跃页
// key 的集合索引（feed:idx:{userID}），失效时枚举删除。
//
// 失效与迟到写入的竞态由每用户代际 token（feed:gen:{userID}）裁决：
//   - 写入方在计算开始前捕获代际，提交时代际已变则丢弃写入
//   - 读取方校验条目代际，不匹配视为 miss
//   - 即使两道检查都输掉竞争，TTL 仍然兜底
type FeedCache struct {
	store core.KeyValueStore
	ttl   int
}

// Option FeedCache 配置选项
type Option func(*FeedCache)

// WithTTL 设置缓存 TTL（秒）。
func WithTTL(seconds int) Option {
	return func(c *FeedCache) {
		if seconds > 0 {
			c.ttl = seconds
		}
	}
}

// NewFeedCache 创建 FeedCache。store 作为单一持有资源注入，
// 便于用假存储独立测试。
func NewFeedCache(store core.KeyValueStore, opts ...Option) *FeedCache {
	c := &FeedCache{
		store: store,
		ttl:   DefaultTTLSeconds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTLSeconds 返回当前配置的 TTL。
func (c *FeedCache) TTLSeconds() int { return c.ttl }

func pageKey(feedType, userID string, page int) string {
	return fmt.Sprintf("feed:%s:%s:%d", feedType, userID, page)
}

func indexKey(userID string) string {
	return fmt.Sprintf("feed:idx:%s", userID)
}

func genKey(userID string) string {
	return fmt.Sprintf("feed:gen:%s", userID)
}

// envelope 是存储中的条目形态：代际 + 不透明载荷。
type envelope struct {
	Gen     int64           `json:"gen"`
	Payload json.RawMessage `json:"payload"`
}

// Generation 返回用户当前的代际 token。写入方应在候选计算开始前
// 调用，并将返回值传给 Set。从未失效过的用户代际为 0。
func (c *FeedCache) Generation(ctx context.Context, userID string) (int64, error) {
	raw, err := c.store.Get(ctx, genKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return 0, nil
		}
		return 0, unavailable("generation", err)
	}
	gen, parseErr := strconv.ParseInt(string(raw), 10, 64)
	if parseErr != nil {
		return 0, nil
	}
	return gen, nil
}

// Get 读取一页缓存。未缓存/已过期/已失效返回 ErrCacheMiss；
// 后端不可达返回 UNAVAILABLE（调用方应按 miss 降级处理，
// 缓存是性能优化而非正确性依赖）。
func (c *FeedCache) Get(ctx context.Context, feedType, userID string, page int) ([]byte, error) {
	raw, err := c.store.Get(ctx, pageKey(feedType, userID, page))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, ErrCacheMiss
		}
		return nil, unavailable("get", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// 无法解释的条目当作 miss，下一次写入会覆盖它
		return nil, ErrCacheMiss
	}

	cur, err := c.Generation(ctx, userID)
	if err == nil && env.Gen != cur {
		// 失效发生在该条目写入之后：条目已是脏数据
		return nil, ErrCacheMiss
	}
	// 代际读取失败时信任 TTL：最多 ttl 秒的脏窗口

	return env.Payload, nil
}

// Set 写入一页缓存，无条件覆盖同 key 的既有条目，TTL 相对写入时刻。
// gen 必须是写入方计算开始前通过 Generation 捕获的代际：
// 提交时代际已变说明计算期间发生过失效，写入被丢弃并返回
// ErrStaleWrite——失效绝不被迟到的写入静默吞掉。
func (c *FeedCache) Set(ctx context.Context, feedType, userID string, page int, payload []byte, gen int64) error {
	cur, err := c.Generation(ctx, userID)
	if err == nil && gen != cur {
		return ErrStaleWrite
	}

	env := envelope{Gen: gen, Payload: payload}
	raw, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}

	key := pageKey(feedType, userID, page)
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		return unavailable("set", err)
	}

	// 索引写入失败只影响后续失效的完整性，TTL 仍然兜底
	if err := c.store.SAdd(ctx, indexKey(userID), key); err != nil {
		return unavailable("index", err)
	}
	return nil
}

// InvalidateUser 失效一个用户的全部缓存页（所有 feed 类型与页码）。
// 先递增代际 token（裁决在途写入），再枚举索引删除条目。
// 其他用户的 key 空间完全不受影响。
func (c *FeedCache) InvalidateUser(ctx context.Context, userID string) error {
	// 先 bump 代际：从这一刻起，计算开始于此前的写入全部作废
	if _, err := c.store.IncrBy(ctx, genKey(userID), 1, generationTTLSeconds); err != nil {
		return unavailable("generation bump", err)
	}

	keys, err := c.store.SMembers(ctx, indexKey(userID))
	if err != nil {
		return unavailable("index read", err)
	}
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			return unavailable("delete", err)
		}
	}
	if err := c.store.Delete(ctx, indexKey(userID)); err != nil {
		return unavailable("index delete", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return core.NewDomainError(core.ModuleCache, core.ErrorCodeUnavailable,
		fmt.Sprintf("cache %s: %v", op, err))
}
