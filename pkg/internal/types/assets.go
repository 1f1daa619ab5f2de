package types

import (
	"io"

	"github.com/yeisme/clipstudio/pkg/internal/model"
)

// FileInput 待上传的文件，Body 只读取一次.
type FileInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SizeMB 以 MB 表示的大小（bytes / 1048576）.
func (f *FileInput) SizeMB() float64 {
	return float64(f.Size) / (1024 * 1024)
}

// VideoResult 远端视频处理完成后的结果.
type VideoResult struct {
	UID             string  `json:"uid"`
	ManifestURL     string  `json:"manifest_url"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// StorageUsage 用户存储用量，单位 MB.
type StorageUsage struct {
	Used       float64 `json:"used"`
	Limit      float64 `json:"limit"`
	Percentage float64 `json:"percentage"`
}

// DeleteAssetRequest 删除素材请求.
type DeleteAssetRequest struct {
	AssetID string `json:"assetId" rule:"required"`
}

// ListAssetsResponse 素材列表响应.
type ListAssetsResponse struct {
	Success bool          `json:"success"`
	Assets  []model.Asset `json:"assets"`
}

// AssetResponse 单个素材响应.
type AssetResponse struct {
	Success bool         `json:"success"`
	Asset   *model.Asset `json:"asset"`
}

// StorageInfoResponse 存储用量响应.
type StorageInfoResponse struct {
	Success bool         `json:"success"`
	Usage   StorageUsage `json:"usage"`
}

// TiersResponse 存储等级列表响应.
type TiersResponse struct {
	Success bool                `json:"success"`
	Tiers   []model.StorageTier `json:"tiers"`
}

// SuccessResponse 仅含成功标记的响应.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse 错误响应.
type ErrorResponse struct {
	Error string `json:"error"`
}
