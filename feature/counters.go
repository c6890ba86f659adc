package feature

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rushteam/feedkit/core"
)

// 分钟桶计数的保留时长：覆盖 24h 窗口并留出余量。
const bucketTTLSeconds = 60 * 60 * 48

// CounterStore 以分钟桶维护候选的实时互动计数，用于计算
// H1（近 1 小时）与 H24（近 24 小时）窗口互动量。
//
// key 形如 counters:item:{itemID}:{event}:bucket:{minute}，
// 写入走 IncrBy（首次创建带 48h TTL），窗口求和走 BatchGet，
// 缺失的桶按 0 处理。
type CounterStore struct {
	store core.KeyValueStore

	// now 可注入的时钟，测试中用于固定分钟桶
	now func() time.Time
}

func NewCounterStore(kv core.KeyValueStore) *CounterStore {
	return &CounterStore{
		store: kv,
		now:   time.Now,
	}
}

// SetClock 替换内部时钟（仅测试使用）。
func (c *CounterStore) SetClock(now func() time.Time) {
	c.now = now
}

func bucketKey(itemID, event string, minute int64) string {
	return fmt.Sprintf("counters:item:%s:%s:bucket:%d", itemID, event, minute)
}

// IncrEvent 记录一次互动事件（views/likes/...），落在当前分钟桶。
func (c *CounterStore) IncrEvent(ctx context.Context, itemID, event string, amount int64) error {
	minute := c.now().UnixMilli() / int64(time.Minute/time.Millisecond)
	_, err := c.store.IncrBy(ctx, bucketKey(itemID, event, minute), amount, bucketTTLSeconds)
	return err
}

// SumWindow 求最近 minutes 分钟内某事件的互动总量。
func (c *CounterStore) SumWindow(ctx context.Context, itemID, event string, minutes int) (float64, error) {
	now := c.now().UnixMilli() / int64(time.Minute/time.Millisecond)
	keys := make([]string, 0, minutes)
	for i := 0; i < minutes; i++ {
		keys = append(keys, bucketKey(itemID, event, now-int64(i)))
	}

	vals, err := c.store.BatchGet(ctx, keys)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, v := range vals {
		if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			sum += float64(n)
		}
	}
	return sum, nil
}
