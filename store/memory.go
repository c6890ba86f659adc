package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rushteam/feedkit/core"
)

// MemoryStore 是内存实现的 KeyValueStore，用于测试/开发/原型。
// 支持 TTL（过期时间），但进程重启后数据丢失。
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]*entry
	sets  map[string]map[string]struct{}
	clean *time.Ticker
	stop  chan struct{}

	// now 可注入的时钟，测试中用于模拟 TTL 过期
	now func() time.Time
}

type entry struct {
	value     []byte
	expiresAt *time.Time
}

func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		data:  make(map[string]*entry),
		sets:  make(map[string]map[string]struct{}),
		clean: time.NewTicker(10 * time.Second),
		stop:  make(chan struct{}),
		now:   time.Now,
	}
	go ms.cleanup()
	return ms
}

func (m *MemoryStore) Name() string { return "memory" }

// SetClock 替换内部时钟（仅测试使用）。
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) cleanup() {
	for {
		select {
		case <-m.clean.C:
			m.mu.Lock()
			now := m.now()
			for k, e := range m.data {
				if e.expiresAt != nil && now.After(*e.expiresAt) {
					delete(m.data, k)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

func (m *MemoryStore) expireAt(ttl ...int) *time.Time {
	if len(ttl) > 0 && ttl[0] > 0 {
		t := m.now().Add(time.Duration(ttl[0]) * time.Second)
		return &t
	}
	return nil
}

func (m *MemoryStore) alive(e *entry) bool {
	return e != nil && (e.expiresAt == nil || m.now().Before(*e.expiresAt))
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok || !m.alive(e) {
		return nil, core.ErrStoreNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = &entry{value: value, expiresAt: m.expireAt(ttl...)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	delete(m.sets, key)
	return nil
}

func (m *MemoryStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if e, ok := m.data[k]; ok && m.alive(e) {
			result[k] = e.value
		}
	}
	return result, nil
}

func (m *MemoryStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expire := m.expireAt(ttl...)
	for k, v := range kvs {
		m.data[k] = &entry{value: v, expiresAt: expire}
	}
	return nil
}

func (m *MemoryStore) IncrBy(ctx context.Context, key string, delta int64, ttl ...int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cur int64
	e, ok := m.data[key]
	if ok && m.alive(e) {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: value is not an integer")
		}
		cur = parsed
		cur += delta
		e.value = []byte(strconv.FormatInt(cur, 10))
		return cur, nil
	}

	// key 不存在（或已过期）：创建并应用 ttl
	cur = delta
	m.data[key] = &entry{
		value:     []byte(strconv.FormatInt(cur, 10)),
		expiresAt: m.expireAt(ttl...),
	}
	return cur, nil
}

func (m *MemoryStore) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, mem := range members {
		set[mem] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.sets[key]
	out := make([]string, 0, len(set))
	for mem := range set {
		out = append(out, mem)
	}
	return out, nil
}

func (m *MemoryStore) SRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, mem := range members {
		delete(set, mem)
	}
	if len(set) == 0 {
		delete(m.sets, key)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	if m.clean != nil {
		m.clean.Stop()
	}
	close(m.stop)
	return nil
}

// 确保 MemoryStore 实现了 core.Store 和 core.KeyValueStore 接口
var _ core.Store = (*MemoryStore)(nil)
var _ core.KeyValueStore = (*MemoryStore)(nil)
