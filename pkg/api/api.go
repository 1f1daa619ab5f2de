// Package api 把业务路由挂载到 gin 引擎.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipstudio/pkg/internal/router"
)

// Options 路由的可选依赖.
type Options = router.Options

// RegisterGroup 在 /api 下注册全部业务路由.
func RegisterGroup(e *gin.Engine, opts Options) *gin.Engine {
	router.Register(e.Group("/api"), opts)

	return e
}
