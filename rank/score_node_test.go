package rank

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
)

// fakeScorer scores by the "views" position of the instance so tests
// can control ordering deterministically.
type fakeScorer struct {
	mu     sync.Mutex
	calls  int
	scores map[float64]float64 // views value → score
	fail   bool
}

func (f *fakeScorer) Score(_ context.Context, instance []float64) core.ScoreResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.fail {
		return core.ScoreResult{Score: core.FallbackScore, Source: core.ScoreSourceFallback}
	}
	return core.ScoreResult{Score: f.scores[instance[0]], Source: core.ScoreSourceModel}
}

func (f *fakeScorer) Health(_ context.Context) error { return nil }
func (f *fakeScorer) Close() error                   { return nil }

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func itemWithViews(id string, views float64) *core.Item {
	it := core.NewItem(id)
	it.Features["views"] = views
	return it
}

func TestScoreNodeOrdersByScore(t *testing.T) {
	scorer := &fakeScorer{scores: map[float64]float64{1: 0.1, 2: 0.9, 3: 0.5}}
	node := &ScoreNode{Scorer: scorer, MaxConcurrent: 2}

	items := []*core.Item{
		itemWithViews("a", 1),
		itemWithViews("b", 2),
		itemWithViews("c", 3),
	}

	out, err := node.Process(context.Background(), &core.FeedContext{UserID: "u1"}, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	wantOrder := []string{"b", "c", "a"}
	for i, want := range wantOrder {
		if out[i].ID != want {
			t.Errorf("out[%d] = %s, want %s", i, out[i].ID, want)
		}
	}
	if scorer.callCount() != 3 {
		t.Errorf("scorer called %d times, want 3", scorer.callCount())
	}

	for _, it := range out {
		lbl, ok := it.GetLabel("score_source")
		if !ok || lbl.Value != "model" {
			t.Errorf("item %s score_source = %v, want model", it.ID, lbl.Value)
		}
	}
}

func TestScoreNodeAllFallbackKeepsRecencyOrder(t *testing.T) {
	// when every score degrades to 0, ties break by freshness
	scorer := &fakeScorer{fail: true}
	node := &ScoreNode{Scorer: scorer}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	older := itemWithViews("older", 1)
	older.CreatedAt = base.Add(-time.Hour)
	newer := itemWithViews("newer", 2)
	newer.CreatedAt = base

	out, err := node.Process(context.Background(), &core.FeedContext{}, []*core.Item{older, newer})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if out[0].ID != "newer" || out[1].ID != "older" {
		t.Errorf("order = [%s, %s], want [newer, older]", out[0].ID, out[1].ID)
	}
	for _, it := range out {
		if lbl, _ := it.GetLabel("score_source"); lbl.Value != "fallback" {
			t.Errorf("item %s score_source = %v, want fallback", it.ID, lbl.Value)
		}
	}
}

func TestScoreNodeEmptyInput(t *testing.T) {
	node := &ScoreNode{Scorer: &fakeScorer{}}
	out, err := node.Process(context.Background(), &core.FeedContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("out = %v, want empty", out)
	}
}
