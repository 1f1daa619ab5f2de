package middleware_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipstudio/pkg/cache"
	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/storage/kv"
	"github.com/yeisme/clipstudio/pkg/middleware"
)

func newCacheEngine(t *testing.T, maxBody int) (*gin.Engine, *int) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, &configs.MemoryKVConfig{Size: 1 << 10})
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	cfg := middleware.DefaultCacheConfig(cache.NewCache(store, cache.WithPrefix("resp:")))
	cfg.MaxBodyBytes = maxBody

	calls := 0
	r := gin.New()
	r.Use(middleware.CacheMiddleware(cfg))
	r.GET("/tiers", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"tiers": []string{"free"}, "n": c.Query("n")})
	})
	r.GET("/fail", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "down"})
	})

	return r, &calls
}

// TestCacheMiddleware 测试首次未命中、再次命中、ETag 304 与绕过请求头.
func TestCacheMiddleware(t *testing.T) {
	r, calls := newCacheEngine(t, middleware.DefaultMaxBodyBytes)

	first := doGet(r, "/tiers", nil)
	if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("Expected miss, got %d %v", first.Code, first.Header())
	}

	second := doGet(r, "/tiers", nil)
	if second.Header().Get("X-Cache") != "HIT" || second.Body.String() != first.Body.String() {
		t.Errorf("Expected cached body, got %s %q", second.Header().Get("X-Cache"), second.Body.String())
	}

	if !strings.HasPrefix(second.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Expected json content type, got %s", second.Header().Get("Content-Type"))
	}

	etag := second.Header().Get("ETag")
	if etag == "" {
		t.Fatal("Expected ETag on cached response")
	}

	if w := doGet(r, "/tiers", map[string]string{"If-None-Match": etag}); w.Code != http.StatusNotModified {
		t.Errorf("Expected 304, got %d", w.Code)
	}

	if w := doGet(r, "/tiers", map[string]string{middleware.CacheBypassHeader: "1"}); w.Header().Get("X-Cache") != "MISS" {
		t.Errorf("Expected bypass to reach the handler, got %v", w.Header())
	}

	if w := doGet(r, "/tiers?n=2", nil); w.Header().Get("X-Cache") != "MISS" || !strings.Contains(w.Body.String(), `"n":"2"`) {
		t.Errorf("Expected different query to miss, got %v %s", w.Header(), w.Body.String())
	}

	if *calls != 3 {
		t.Errorf("Expected 3 handler calls, got %d", *calls)
	}
}

// TestCacheMiddleware_NotStored 测试非 200 与超出大小的响应不缓存.
func TestCacheMiddleware_NotStored(t *testing.T) {
	r, calls := newCacheEngine(t, 0)

	for range 2 {
		if w := doGet(r, "/fail", nil); w.Code != http.StatusInternalServerError || w.Header().Get("X-Cache") != "MISS" {
			t.Errorf("Expected uncached 500, got %d %v", w.Code, w.Header())
		}
	}

	small, smallCalls := newCacheEngine(t, 4)

	for range 2 {
		if w := doGet(small, "/tiers", nil); w.Header().Get("X-Cache") != "MISS" {
			t.Errorf("Expected oversized body to stay uncached, got %v", w.Header())
		}
	}

	if *calls != 2 || *smallCalls != 2 {
		t.Errorf("Expected every request to reach the handler, got %d and %d", *calls, *smallCalls)
	}
}
