package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yeisme/clipstudio/pkg/cache"
	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/storage/kv"
)

type tierRecord struct {
	Level   int     `json:"level"`
	Name    string  `json:"name"`
	LimitMB float64 `json:"limit_mb"`
}

func newCache(t *testing.T, opts ...cache.Option) *cache.Cache {
	t.Helper()

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, &configs.MemoryKVConfig{Size: 128})
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })

	return cache.NewCache(store, opts...)
}

// TestCache_GetSet 测试写入后读取与未命中判断.
func TestCache_GetSet(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	_, err := cache.Get[tierRecord](ctx, c, "tier:0")
	if !cache.IsMiss(err) {
		t.Errorf("Expected cache miss, got %v", err)
	}

	want := tierRecord{Level: 0, Name: "free", LimitMB: 500}
	if err := cache.Set(ctx, c, "tier:0", want, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get[tierRecord](ctx, c, "tier:0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Expected cached tier to match (-want +got):\n%s", diff)
	}
}

// TestCache_DeleteExists 测试删除后键不再存在.
func TestCache_DeleteExists(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, c, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Error("Expected key to exist")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Error("Expected key to be gone after delete")
	}
}

// TestGetOrSet 测试 getter 只在未命中时调用.
func TestGetOrSet(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	calls := 0
	getter := func() (tierRecord, error) {
		calls++
		return tierRecord{Level: 1, Name: "pro", LimitMB: 5000}, nil
	}

	first, err := cache.GetOrSet(ctx, c, "tier:1", getter, time.Minute)
	if err != nil {
		t.Fatalf("GetOrSet failed: %v", err)
	}

	second, err := cache.GetOrSet(ctx, c, "tier:1", getter, time.Minute)
	if err != nil {
		t.Fatalf("GetOrSet failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("Expected getter to be called once, got %d", calls)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Expected identical results (-first +second):\n%s", diff)
	}
}

// TestGetOrSet_GetterError 测试 getter 失败时不回填缓存.
func TestGetOrSet_GetterError(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	boom := errors.New("tier missing")

	_, err := cache.GetOrSet(ctx, c, "tier:9", func() (tierRecord, error) {
		return tierRecord{}, boom
	}, time.Minute)
	if !errors.Is(err, boom) {
		t.Errorf("Expected getter error, got %v", err)
	}

	if ok, _ := c.Exists(ctx, "tier:9"); ok {
		t.Error("Expected failed getter result not to be cached")
	}
}

// TestCache_ClearPrefix 测试 Clear 只删除本前缀的键.
func TestCache_ClearPrefix(t *testing.T) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, &configs.MemoryKVConfig{Size: 128})
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	tiers := cache.NewCache(store, cache.WithPrefix("tiers:"))
	other := cache.NewCache(store, cache.WithPrefix("other:"))

	for _, k := range []string{"a", "b", "c"} {
		if err := cache.Set(ctx, tiers, k, k, 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := cache.Set(ctx, other, "a", "keep", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := tiers.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, _ := store.Keys(ctx, "tiers:*")
	if len(keys) != 0 {
		t.Errorf("Expected 0 tier keys after clear, got %d", len(keys))
	}

	if v, err := cache.Get[string](ctx, other, "a"); err != nil || v != "keep" {
		t.Errorf("Expected other prefix untouched, got %q (%v)", v, err)
	}
}
