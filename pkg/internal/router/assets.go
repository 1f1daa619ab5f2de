package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipstudio/pkg/internal/handle"
	"github.com/yeisme/clipstudio/pkg/middleware"
)

const tiersCacheTTL = 5 * time.Minute

// RegisterAssetRoutes 注册素材相关路由.
func RegisterAssetRoutes(g *gin.RouterGroup, opts Options) {
	assets := g.Group("/assets")
	{
		assets.GET("", handle.ListAssets)
		assets.DELETE("", handle.DeleteAsset)
		assets.GET("/storage-info", handle.StorageInfo)
		assets.POST("/upload", handle.UploadAsset)

		tiers := []gin.HandlerFunc{handle.ListTiers}
		if opts.TiersCache != nil {
			cfg := middleware.DefaultCacheConfig(opts.TiersCache)
			cfg.TTL = tiersCacheTTL
			tiers = append([]gin.HandlerFunc{middleware.CacheMiddleware(cfg)}, tiers...)
		}

		assets.GET("/tiers", tiers...)
		assets.GET("/:id", handle.GetAsset)
	}
}
