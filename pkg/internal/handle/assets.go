package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/service"
	"github.com/yeisme/clipstudio/pkg/internal/types"
)

// ListAssets 列出当前用户的素材.
//
//	@Summary		素材列表
//	@Description	按上传时间倒序返回当前用户的素材，可按类型过滤
//	@Tags			素材
//	@Produce		json
//	@Param			type	query		string						false	"video | image | audio"
//	@Success		200		{object}	types.ListAssetsResponse	"素材列表"
//	@Failure		400		{object}	types.ErrorResponse			"类型无效"
//	@Router			/api/assets [get]
func ListAssets(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	assets, err := service.NewAssetService(deps(c)).List(c.Request.Context(), userID, c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ListAssetsResponse{Success: true, Assets: assets})
}

// GetAsset 获取单个素材.
func GetAsset(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	asset, err := service.NewAssetService(deps(c)).Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.AssetResponse{Success: true, Asset: asset})
}

// DeleteAsset 删除素材，远端对象的删除失败不影响响应.
//
//	@Summary		删除素材
//	@Tags			素材
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.DeleteAssetRequest	true	"素材 ID"
//	@Success		200		{object}	types.SuccessResponse
//	@Failure		404		{object}	types.ErrorResponse	"Asset not found"
//	@Router			/api/assets [delete]
func DeleteAsset(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.DeleteAssetRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := service.NewAssetService(deps(c)).Delete(c.Request.Context(), userID, req.AssetID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// StorageInfo 返回当前用户的存储用量.
//
//	@Summary		存储用量
//	@Tags			素材
//	@Produce		json
//	@Success		200	{object}	types.StorageInfoResponse
//	@Router			/api/assets/storage-info [get]
func StorageInfo(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	usage, err := service.NewQuotaService(deps(c)).Usage(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.StorageInfoResponse{Success: true, Usage: usage})
}

// ListTiers 列出存储等级.
func ListTiers(c *gin.Context) {
	tiers, err := service.NewQuotaService(deps(c)).Tiers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.TiersResponse{Success: true, Tiers: tiers})
}

// UploadAsset 上传素材. 视频会阻塞到远端处理完成或超时.
//
//	@Summary		上传素材
//	@Tags			素材
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"素材文件"
//	@Param			type	formData	string	true	"video | image | audio"
//	@Success		200		{object}	types.AssetResponse
//	@Failure		400		{object}	types.ErrorResponse	"校验失败或超出配额"
//	@Failure		500		{object}	types.ErrorResponse	"远端处理或落库失败"
//	@Router			/api/assets/upload [post]
func UploadAsset(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var file *types.FileInput

	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()

		file = &types.FileInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), uploadTimeout())
	defer cancel()

	asset, err := service.NewUploadService(deps(c)).Upload(ctx, userID, file, c.PostForm("type"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.AssetResponse{Success: true, Asset: asset})
}

func uploadTimeout() time.Duration {
	cfg := configs.GetConfig()
	if d := cfg.Server.GetUploadTimeoutDuration(); d > 0 {
		return d
	}

	return time.Duration(configs.DefaultUploadTimeout) * time.Second
}
