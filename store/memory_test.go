package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if _, err := ms.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) error = %v, want ErrStoreNotFound", err)
	}

	if err := ms.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := ms.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get() = %s, %v", got, err)
	}

	if err := ms.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := ms.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get() after delete error = %v, want ErrStoreNotFound", err)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ms.SetClock(func() time.Time { return now })
	ctx := context.Background()

	if err := ms.Set(ctx, "k", []byte("v"), 10); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	now = now.Add(9 * time.Second)
	if _, err := ms.Get(ctx, "k"); err != nil {
		t.Errorf("Get() before expiry error = %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := ms.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get() after expiry error = %v, want ErrStoreNotFound", err)
	}
}

func TestMemoryStoreIncrBy(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	n, err := ms.IncrBy(ctx, "cnt", 3, 60)
	if err != nil || n != 3 {
		t.Fatalf("IncrBy() = %d, %v, want 3", n, err)
	}
	n, err = ms.IncrBy(ctx, "cnt", 2)
	if err != nil || n != 5 {
		t.Fatalf("IncrBy() = %d, %v, want 5", n, err)
	}

	// non-integer value is a hard error, not a silent reset
	if err := ms.Set(ctx, "str", []byte("abc")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := ms.IncrBy(ctx, "str", 1); err == nil {
		t.Error("IncrBy on non-integer should fail")
	}
}

func TestMemoryStoreBatch(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.BatchSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}

	got, err := ms.BatchGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet() = %v", got)
	}
	if _, ok := got["missing"]; ok {
		t.Error("missing key should be absent, not empty")
	}
}

func TestMemoryStoreSets(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.SAdd(ctx, "s", "a", "b", "a"); err != nil {
		t.Fatalf("SAdd() error = %v", err)
	}
	members, err := ms.SMembers(ctx, "s")
	if err != nil {
		t.Fatalf("SMembers() error = %v", err)
	}
	if len(members) != 2 {
		t.Errorf("SMembers() = %v, want 2 unique members", members)
	}

	if err := ms.SRem(ctx, "s", "a"); err != nil {
		t.Fatalf("SRem() error = %v", err)
	}
	members, _ = ms.SMembers(ctx, "s")
	if len(members) != 1 || members[0] != "b" {
		t.Errorf("SMembers() after SRem = %v, want [b]", members)
	}

	// Delete drops the set too
	if err := ms.Delete(ctx, "s"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	members, _ = ms.SMembers(ctx, "s")
	if len(members) != 0 {
		t.Errorf("SMembers() after Delete = %v, want empty", members)
	}
}
