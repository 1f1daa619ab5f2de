package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipstudio/pkg/internal/service"
	"github.com/yeisme/clipstudio/pkg/internal/types"
)

// ListProjects 按创建时间倒序列出项目.
func ListProjects(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	projects, err := service.NewProjectService(deps(c)).List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ListProjectsResponse{Success: true, Projects: projects})
}

// CreateProject 创建项目.
//
//	@Summary	创建项目
//	@Tags		项目
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.CreateProjectRequest	true	"名称与画幅"
//	@Success	200		{object}	types.ProjectResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Router		/api/projects [post]
func CreateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := service.NewProjectService(deps(c)).Create(c.Request.Context(), userID, req.Name, req.AspectRatio)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ProjectResponse{Success: true, Project: project})
}

// GetProject 获取项目.
func GetProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	project, err := service.NewProjectService(deps(c)).Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ProjectResponse{Success: true, Project: project})
}

// DeleteProject 删除项目及其槽位，不删除素材.
func DeleteProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := service.NewProjectService(deps(c)).Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}
