package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipstudio/pkg/internal/handle"
)

// RegisterProjectRoutes 注册项目与槽位路由.
func RegisterProjectRoutes(g *gin.RouterGroup) {
	projects := g.Group("/projects")
	{
		projects.GET("", handle.ListProjects)
		projects.POST("", handle.CreateProject)

		single := projects.Group("/:id")
		{
			single.GET("", handle.GetProject)
			single.DELETE("", handle.DeleteProject)

			// 槽位
			single.GET("/assets", handle.GetProjectAssets)
			single.POST("/assets", handle.AddProjectAsset)
			single.DELETE("/assets/:slot/:position", handle.RemoveProjectAsset)
		}
	}
}
