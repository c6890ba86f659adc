package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rushteam/feedkit/cache"
	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/feature"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/rank"
	"github.com/rushteam/feedkit/recall"
	"github.com/rushteam/feedkit/rerank"
	"github.com/rushteam/feedkit/store"
)

// likesScorer scores proportional to the likes feature; counts calls so
// tests can assert the cache hit path never reaches scoring.
type likesScorer struct {
	calls int32
	fail  bool
}

func (s *likesScorer) Score(_ context.Context, instance []float64) core.ScoreResult {
	atomic.AddInt32(&s.calls, 1)
	if s.fail {
		return core.ScoreResult{Score: core.FallbackScore, Source: core.ScoreSourceFallback}
	}
	vec, _ := feature.FromValues(instance)
	return core.ScoreResult{Score: core.ClampScore(vec.Likes / 100), Source: core.ScoreSourceModel}
}

func (s *likesScorer) Health(_ context.Context) error { return nil }
func (s *likesScorer) Close() error                   { return nil }

func candidate(id string, likes float64, createdAt time.Time) *core.Item {
	it := core.NewItem(id)
	it.CreatedAt = createdAt
	it.Features["views"] = 1000
	it.Features["likes"] = likes
	return it
}

type rankerFixture struct {
	ranker  *Ranker
	cache   *cache.FeedCache
	scorer  *likesScorer
	fetches int32
	now     time.Time
}

func newRankerFixture(t *testing.T, items []*core.Item, fetchErr error) *rankerFixture {
	t.Helper()

	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })

	f := &rankerFixture{
		cache:  cache.NewFeedCache(ms),
		scorer: &likesScorer{},
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	ms.SetClock(func() time.Time { return f.now })

	source := recall.SourceFunc{
		SourceName: "test",
		Fn: func(ctx context.Context, fctx *core.FeedContext) ([]*core.Item, error) {
			atomic.AddInt32(&f.fetches, 1)
			if fetchErr != nil {
				return nil, fetchErr
			}
			// fresh copies per fetch, like a real upstream would return
			out := make([]*core.Item, 0, len(items))
			for _, it := range items {
				c := candidate(it.ID, it.Features["likes"], it.CreatedAt)
				out = append(out, c)
			}
			return out, nil
		},
	}

	enrich := feature.NewEnrichNode(feature.NewExtractor(), nil, feature.NewStaticSignals())
	enrich.SetClock(func() time.Time { return f.now })

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		enrich,
		&rank.ScoreNode{Scorer: f.scorer},
		&rerank.TopNNode{N: 20},
	}}

	f.ranker = NewRanker(f.cache, source, p)
	f.ranker.SetClock(func() time.Time { return f.now })
	return f
}

func TestRankerGetFeedRanksByScore(t *testing.T) {
	base := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	f := newRankerFixture(t, []*core.Item{
		candidate("low", 10, base),
		candidate("high", 90, base),
	}, nil)

	fctx := &core.FeedContext{UserID: "u1", FeedType: "video", Page: 1}
	page, err := f.ranker.GetFeed(context.Background(), fctx)
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}

	if len(page.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(page.Items))
	}
	if page.Items[0].ID != "high" || page.Items[1].ID != "low" {
		t.Errorf("order = [%s, %s], want [high, low]", page.Items[0].ID, page.Items[1].ID)
	}
	if page.Items[0].Score != 0.9 {
		t.Errorf("top score = %v, want 0.9", page.Items[0].Score)
	}
	if page.FeedType != "video" || page.UserID != "u1" || page.Page != 1 {
		t.Errorf("page identity = %s/%s/%d", page.FeedType, page.UserID, page.Page)
	}
}

func TestRankerSecondCallHitsCache(t *testing.T) {
	base := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	f := newRankerFixture(t, []*core.Item{candidate("a", 50, base)}, nil)

	fctx := &core.FeedContext{UserID: "u1", FeedType: "video", Page: 1}
	ctx := context.Background()

	first, err := f.ranker.GetFeed(ctx, fctx)
	if err != nil {
		t.Fatalf("first GetFeed() error = %v", err)
	}
	second, err := f.ranker.GetFeed(ctx, fctx)
	if err != nil {
		t.Fatalf("second GetFeed() error = %v", err)
	}

	if atomic.LoadInt32(&f.fetches) != 1 {
		t.Errorf("source fetched %d times, want 1 (second call must be a cache hit)", f.fetches)
	}
	if atomic.LoadInt32(&f.scorer.calls) != 1 {
		t.Errorf("scorer called %d times, want 1", f.scorer.calls)
	}
	if len(second.Items) != len(first.Items) || second.Items[0].ID != first.Items[0].ID {
		t.Errorf("cached page differs: %+v vs %+v", second.Items, first.Items)
	}
}

func TestRankerRecomputesAfterInvalidation(t *testing.T) {
	base := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	f := newRankerFixture(t, []*core.Item{candidate("a", 50, base)}, nil)

	fctx := &core.FeedContext{UserID: "u1", FeedType: "video", Page: 1}
	ctx := context.Background()

	if _, err := f.ranker.GetFeed(ctx, fctx); err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if err := f.cache.InvalidateUser(ctx, "u1"); err != nil {
		t.Fatalf("InvalidateUser() error = %v", err)
	}
	if _, err := f.ranker.GetFeed(ctx, fctx); err != nil {
		t.Fatalf("GetFeed() after invalidation error = %v", err)
	}

	if atomic.LoadInt32(&f.fetches) != 2 {
		t.Errorf("source fetched %d times, want 2 after invalidation", f.fetches)
	}
}

func TestRankerAllFallbackServesByRecency(t *testing.T) {
	base := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	f := newRankerFixture(t, []*core.Item{
		candidate("older", 90, base.Add(-time.Hour)),
		candidate("newer", 10, base),
	}, nil)
	f.scorer.fail = true

	page, err := f.ranker.GetFeed(context.Background(), &core.FeedContext{UserID: "u1", FeedType: "video", Page: 1})
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}

	// total scoring degradation still serves a page, newest first
	if page.Items[0].ID != "newer" || page.Items[1].ID != "older" {
		t.Errorf("order = [%s, %s], want [newer, older]", page.Items[0].ID, page.Items[1].ID)
	}
	for _, it := range page.Items {
		if it.Score != 0 {
			t.Errorf("item %s score = %v, want 0", it.ID, it.Score)
		}
	}
}

func TestRankerSourceErrorPropagates(t *testing.T) {
	fetchErr := errors.New("upstream down")
	f := newRankerFixture(t, nil, fetchErr)

	_, err := f.ranker.GetFeed(context.Background(), &core.FeedContext{UserID: "u1", FeedType: "video", Page: 1})
	if !errors.Is(err, fetchErr) {
		t.Errorf("GetFeed() error = %v, want %v", err, fetchErr)
	}
}

func TestRankerCachesEmptyPage(t *testing.T) {
	f := newRankerFixture(t, nil, nil)

	fctx := &core.FeedContext{UserID: "u1", FeedType: "video", Page: 1}
	ctx := context.Background()

	page, err := f.ranker.GetFeed(ctx, fctx)
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("got %d items, want 0", len(page.Items))
	}

	if _, err := f.ranker.GetFeed(ctx, fctx); err != nil {
		t.Fatalf("second GetFeed() error = %v", err)
	}
	if atomic.LoadInt32(&f.fetches) != 1 {
		t.Errorf("empty page should be cached, source fetched %d times", f.fetches)
	}
}

func TestPageCodecRoundTrip(t *testing.T) {
	base := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	page := &Page{
		FeedType:    "video",
		UserID:      "u1",
		Page:        2,
		GeneratedAt: base,
		Items: []PageItem{
			{ID: "a", Score: 0.9, CreatedAt: base.Add(-time.Minute), Meta: map[string]any{"title": "hi"}},
		},
	}

	raw, err := EncodePage(page)
	if err != nil {
		t.Fatalf("EncodePage() error = %v", err)
	}
	back, err := DecodePage(raw)
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}

	if back.FeedType != page.FeedType || back.UserID != page.UserID || back.Page != page.Page {
		t.Errorf("identity mismatch: %+v", back)
	}
	if len(back.Items) != 1 || back.Items[0].ID != "a" || back.Items[0].Score != 0.9 {
		t.Errorf("items mismatch: %+v", back.Items)
	}
	if back.Items[0].Meta["title"] != "hi" {
		t.Errorf("meta mismatch: %+v", back.Items[0].Meta)
	}

	if _, err := DecodePage([]byte(`{broken`)); err == nil {
		t.Error("DecodePage should reject malformed payload")
	}
}
