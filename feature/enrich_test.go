package feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/store"
)

type erroringSignals struct{}

func (erroringSignals) Name() string { return "signals.erroring" }
func (erroringSignals) ViewerItemSignals(_ context.Context, _ string, _ []string) (map[string]core.ViewerSignals, error) {
	return nil, errors.New("signals down")
}
func (erroringSignals) Close(_ context.Context) error { return nil }

func enrichCandidate(id string, views, likes float64, createdAt time.Time) *core.Item {
	it := core.NewItem(id)
	it.CreatedAt = createdAt
	it.Features["views"] = views
	it.Features["likes"] = likes
	return it
}

func TestEnrichNodeBuildsVector(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	node := NewEnrichNode(NewExtractor(), nil, NewStaticSignals())
	node.SetClock(func() time.Time { return now })

	it := enrichCandidate("a", 100, 10, now.Add(-45*time.Minute))
	out, err := node.Process(context.Background(), &core.FeedContext{UserID: "u1"}, []*core.Item{it})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	f := out[0].Features
	if f["recencyMinutes"] != 45 {
		t.Errorf("recencyMinutes = %v, want 45", f["recencyMinutes"])
	}
	if f["positiveReactionsRatio"] != 0.1 {
		t.Errorf("positiveReactionsRatio = %v, want 0.1", f["positiveReactionsRatio"])
	}
	if f["avgWatchCompletion"] != 0.5 {
		t.Errorf("avgWatchCompletion = %v, want static default 0.5", f["avgWatchCompletion"])
	}

	// every canonical field must be present after enrichment
	for _, name := range FieldNames {
		if _, ok := f[name]; !ok {
			t.Errorf("missing feature %q", name)
		}
	}

	if lbl, ok := out[0].GetLabel("feature_vector"); !ok || lbl.Value != "v1" {
		t.Errorf("feature_vector label = %v", lbl.Value)
	}
}

func TestEnrichNodeCountersOverridePrefilled(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ms.SetClock(clock)

	cs := NewCounterStore(ms)
	cs.SetClock(clock)

	ctx := context.Background()
	if err := cs.IncrEvent(ctx, "a", "views", 24); err != nil {
		t.Fatalf("IncrEvent() error = %v", err)
	}

	node := NewEnrichNode(NewExtractor(), cs, NewStaticSignals())
	node.SetClock(clock)

	it := enrichCandidate("a", 100, 5, now.Add(-time.Hour))
	it.Features["h1"] = 999 // pre-filled value must lose to live counters

	out, err := node.Process(ctx, &core.FeedContext{UserID: "u1"}, []*core.Item{it})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// h1 = h24 = 24 → velocity = 24 / max(1, 24/24) = 24
	if got := out[0].Features["velocity"]; got != 24 {
		t.Errorf("velocity = %v, want 24 from live counters", got)
	}
}

func TestEnrichNodeSignalErrorDegradesToDefaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	node := NewEnrichNode(NewExtractor(), nil, erroringSignals{})
	node.SetClock(func() time.Time { return now })

	it := enrichCandidate("a", 10, 1, now)
	out, err := node.Process(context.Background(), &core.FeedContext{UserID: "u1"}, []*core.Item{it})
	if err != nil {
		t.Fatalf("Process() should degrade, got error %v", err)
	}
	if got := out[0].Features["avgWatchCompletion"]; got != 0.5 {
		t.Errorf("avgWatchCompletion = %v, want default 0.5", got)
	}
	if got := out[0].Features["userAuthorAffinity"]; got != 0 {
		t.Errorf("userAuthorAffinity = %v, want default 0", got)
	}
}

func TestEnrichNodeInvalidCountersPropagate(t *testing.T) {
	node := NewEnrichNode(NewExtractor(), nil, NewStaticSignals())

	it := enrichCandidate("a", -5, 0, time.Time{})
	_, err := node.Process(context.Background(), &core.FeedContext{UserID: "u1"}, []*core.Item{it})
	if err == nil {
		t.Fatal("Process() should fail on negative counters")
	}
	if !core.IsInvalidInput(err) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestStoreSignalsOverrides(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	s := NewStoreSignals(ms)

	// user-level profile, plus a per-item override for item2
	if err := s.SetUserSignals(ctx, "u1", core.ViewerSignals{
		CategoryMatch: 0.7, AuthorAffinity: 0.2, PastBehavior: 0.3, SocialGraph: 1, AvgWatchCompletion: 0.6,
	}); err != nil {
		t.Fatalf("SetUserSignals() error = %v", err)
	}
	if err := s.SetUserItemSignals(ctx, "u1", "item2", core.ViewerSignals{
		CategoryMatch: 0.9, AuthorAffinity: 0.8, PastBehavior: 0.3, SocialGraph: 5, AvgWatchCompletion: 0.6,
	}); err != nil {
		t.Fatalf("SetUserItemSignals() error = %v", err)
	}

	got, err := s.ViewerItemSignals(ctx, "u1", []string{"item1", "item2", "item3"})
	if err != nil {
		t.Fatalf("ViewerItemSignals() error = %v", err)
	}

	if got["item1"].CategoryMatch != 0.7 {
		t.Errorf("item1 inherits user-level: CategoryMatch = %v, want 0.7", got["item1"].CategoryMatch)
	}
	if got["item2"].CategoryMatch != 0.9 || got["item2"].SocialGraph != 5 {
		t.Errorf("item2 override: %+v", got["item2"])
	}
	if got["item3"].AvgWatchCompletion != 0.6 {
		t.Errorf("item3 AvgWatchCompletion = %v, want user-level 0.6", got["item3"].AvgWatchCompletion)
	}
}

func TestStoreSignalsDefaultsWhenMissing(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()

	s := NewStoreSignals(ms)
	got, err := s.ViewerItemSignals(context.Background(), "unknown", []string{"x"})
	if err != nil {
		t.Fatalf("ViewerItemSignals() error = %v", err)
	}
	if got["x"].AvgWatchCompletion != 0.5 {
		t.Errorf("AvgWatchCompletion = %v, want default 0.5", got["x"].AvgWatchCompletion)
	}
	if got["x"].CategoryMatch != 0 {
		t.Errorf("CategoryMatch = %v, want default 0", got["x"].CategoryMatch)
	}
}
