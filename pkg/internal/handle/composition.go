package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipstudio/pkg/errs"
	"github.com/yeisme/clipstudio/pkg/internal/service"
	"github.com/yeisme/clipstudio/pkg/internal/types"
)

// GetProjectAssets 返回项目的 base、clippers 与 bgm 槽位.
//
//	@Summary	项目槽位
//	@Tags		项目
//	@Produce	json
//	@Param		id	path		string	true	"项目 ID"
//	@Success	200	{object}	types.CompositionResponse
//	@Failure	404	{object}	types.ErrorResponse	"Project not found"
//	@Router		/api/projects/{id}/assets [get]
func GetProjectAssets(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	comp, err := service.NewCompositionService(deps(c)).Slots(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.CompositionResponse{Success: true, Composition: *comp})
}

// AddProjectAsset 把素材追加到槽位末尾.
//
//	@Summary	添加槽位素材
//	@Tags		项目
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"项目 ID"
//	@Param		body	body		types.AddSlotAssetRequest	true	"槽位与素材"
//	@Success	200		{object}	types.SlotEntryResponse
//	@Failure	409		{object}	types.ErrorResponse	"槽位已满"
//	@Router		/api/projects/{id}/assets [post]
func AddProjectAsset(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.AddSlotAssetRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := service.NewCompositionService(deps(c)).Add(c.Request.Context(), userID, c.Param("id"), req.Slot, req.AssetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.SlotEntryResponse{Success: true, Entry: entry})
}

// RemoveProjectAsset 删除槽位条目，后续条目前移.
func RemoveProjectAsset(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	position, err := strconv.Atoi(c.Param("position"))
	if err != nil || position < 0 {
		respondError(c, errs.InvalidInput("Invalid position"))
		return
	}

	err = service.NewCompositionService(deps(c)).Remove(c.Request.Context(), userID, c.Param("id"), c.Param("slot"), position)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}
