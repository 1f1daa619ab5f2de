package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/clipstudio/pkg/cache"
	"github.com/yeisme/clipstudio/pkg/log"
)

const (
	DefaultMaxBodyBytes = 1 << 20 // 1MB
	defaultTTL          = 30 * time.Second

	// CacheBypassHeader 请求带有该头时跳过缓存.
	CacheBypassHeader = "X-Cache-Bypass"
)

// CacheConfig 响应缓存配置. 只缓存与用户无关的 GET/HEAD 200 响应.
type CacheConfig struct {
	Cache        *appcache.Cache
	TTL          time.Duration
	MaxBodyBytes int // 超过该大小的响应不缓存，0 表示不限制
}

// DefaultCacheConfig 返回一份默认配置.
func DefaultCacheConfig(c *appcache.Cache) CacheConfig {
	return CacheConfig{
		Cache:        c,
		TTL:          defaultTTL,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// responseCacheEntry 缓存的响应.
type responseCacheEntry struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e,omitempty"`
	StoredAt    int64  `json:"t"`
}

// CacheMiddleware 把公共只读接口的响应缓存在 KV 中，命中时带 ETag 并支持 If-None-Match.
// 缓存读写失败只会退化为直接调用后续处理器.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		panic("CacheMiddleware: Cache cannot be nil")
	}

	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		if (method != http.MethodGet && method != http.MethodHead) || c.GetHeader(CacheBypassHeader) != "" {
			c.Next()
			return
		}

		key := cacheKey(c)
		if serveFromCache(c, cfg.Cache, key) {
			return
		}

		c.Header("X-Cache", "MISS")

		bw := &bodyCaptureWriter{ResponseWriter: c.Writer, max: cfg.MaxBodyBytes}
		c.Writer = bw
		c.Next()

		if c.Writer.Status() != http.StatusOK || bw.truncated {
			return
		}

		body := bw.buf.Bytes()
		entry := responseCacheEntry{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        body,
			ETag:        fmt.Sprintf("%q", fmt.Sprintf("%x", xxhash.Sum64(body))),
			StoredAt:    time.Now().UnixNano(),
		}

		ctx := context.WithoutCancel(c.Request.Context())
		if err := appcache.Set(ctx, cfg.Cache, key, entry, cfg.TTL); err != nil {
			l := log.Logger()
			l.Warn().Err(err).Str("path", c.FullPath()).Msg("store cached response failed")
		}
	}
}

// cacheKey 由方法、路由与排序后的查询参数组成.
func cacheKey(c *gin.Context) string {
	var b strings.Builder

	b.WriteString(c.Request.Method)
	b.WriteByte(':')

	full := c.FullPath()
	if full == "" {
		full = c.Request.URL.Path
	}

	b.WriteString(full)

	if q := c.Request.URL.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}

		sort.Strings(keys)
		b.WriteByte('?')

		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}

			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.Join(q[k], ","))
		}
	}

	return fmt.Sprintf("rc:%x", xxhash.Sum64String(b.String()))
}

// bodyCaptureWriter 复制写出的响应体，超过 max 时标记截断.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.max > 0 && w.buf.Len()+len(b) > w.max {
			w.truncated = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}

// serveFromCache 命中时写出缓存的响应并返回 true.
func serveFromCache(c *gin.Context, cache *appcache.Cache, key string) bool {
	entry, err := appcache.Get[responseCacheEntry](c.Request.Context(), cache, key)
	if err != nil {
		return false
	}

	h := c.Writer.Header()
	h.Set("ETag", entry.ETag)
	h.Set("Age", fmt.Sprintf("%.0f", time.Since(time.Unix(0, entry.StoredAt)).Seconds()))
	h.Set("X-Cache", "HIT")

	if c.GetHeader("If-None-Match") == entry.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return true
	}

	if c.Request.Method == http.MethodHead {
		h.Set("Content-Type", entry.ContentType)
		c.AbortWithStatus(entry.Status)

		return true
	}

	c.Data(entry.Status, entry.ContentType, entry.Body)
	c.Abort()

	return true
}
