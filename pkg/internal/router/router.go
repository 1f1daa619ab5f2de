// Package router 管理路由配置，把路径与 handle 包中的处理器绑定到 gin 路由组.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipstudio/pkg/cache"
)

// Options 路由的可选依赖.
type Options struct {
	// TiersCache 非空时缓存 GET /assets/tiers 的响应.
	TiersCache *cache.Cache
}

// Register 在 g（通常为 /api）下注册全部业务路由.
func Register(g *gin.RouterGroup, opts Options) {
	RegisterHealthCheckRoute(g)
	RegisterAssetRoutes(g, opts)
	RegisterProjectRoutes(g)
	RegisterSchedulerRoutes(g)
}
