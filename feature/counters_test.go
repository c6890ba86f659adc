package feature

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/store"
)

func TestCounterStoreSumWindow(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }
	ms.SetClock(clock)

	cs := NewCounterStore(ms)
	cs.SetClock(clock)

	ctx := context.Background()

	// 3 events in the current minute, 2 events 30 minutes ago, 1 event 3 hours ago
	now = base.Add(-3 * time.Hour)
	if err := cs.IncrEvent(ctx, "item1", "views", 1); err != nil {
		t.Fatalf("IncrEvent() error = %v", err)
	}
	now = base.Add(-30 * time.Minute)
	if err := cs.IncrEvent(ctx, "item1", "views", 2); err != nil {
		t.Fatalf("IncrEvent() error = %v", err)
	}
	now = base
	if err := cs.IncrEvent(ctx, "item1", "views", 3); err != nil {
		t.Fatalf("IncrEvent() error = %v", err)
	}

	h1, err := cs.SumWindow(ctx, "item1", "views", 60)
	if err != nil {
		t.Fatalf("SumWindow(60) error = %v", err)
	}
	if h1 != 5 {
		t.Errorf("1h window = %v, want 5", h1)
	}

	h24, err := cs.SumWindow(ctx, "item1", "views", 1440)
	if err != nil {
		t.Fatalf("SumWindow(1440) error = %v", err)
	}
	if h24 != 6 {
		t.Errorf("24h window = %v, want 6", h24)
	}
}

func TestCounterStoreMissingBucketsAreZero(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()

	cs := NewCounterStore(ms)

	sum, err := cs.SumWindow(context.Background(), "never-seen", "likes", 60)
	if err != nil {
		t.Fatalf("SumWindow() error = %v", err)
	}
	if sum != 0 {
		t.Errorf("sum = %v, want 0 for missing buckets", sum)
	}
}

func TestCounterStoreIsolatesEvents(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()

	cs := NewCounterStore(ms)
	ctx := context.Background()

	if err := cs.IncrEvent(ctx, "item1", "views", 10); err != nil {
		t.Fatalf("IncrEvent() error = %v", err)
	}
	if err := cs.IncrEvent(ctx, "item1", "likes", 2); err != nil {
		t.Fatalf("IncrEvent() error = %v", err)
	}
	if err := cs.IncrEvent(ctx, "item2", "views", 7); err != nil {
		t.Fatalf("IncrEvent() error = %v", err)
	}

	views, _ := cs.SumWindow(ctx, "item1", "views", 60)
	likes, _ := cs.SumWindow(ctx, "item1", "likes", 60)
	other, _ := cs.SumWindow(ctx, "item2", "views", 60)

	if views != 10 || likes != 2 || other != 7 {
		t.Errorf("got views=%v likes=%v other=%v, want 10/2/7", views, likes, other)
	}
}
