package types

import (
	"github.com/yeisme/clipstudio/pkg/internal/model"
)

// CreateProjectRequest 创建项目请求.
type CreateProjectRequest struct {
	Name        string `json:"name"        rule:"max=255"`
	AspectRatio string `json:"aspectRatio"` // 16:9、9:16、1:1、4:3
}

// AddSlotAssetRequest 向槽位添加素材.
type AddSlotAssetRequest struct {
	Slot    string `json:"slot"` // base、clippers、bgm
	AssetID string `json:"assetId" rule:"required"`
}

// AssetSummary 槽位条目中内嵌的素材摘要.
type AssetSummary struct {
	ID              string          `json:"id"`
	Filename        string          `json:"filename"`
	AssetType       model.AssetType `json:"asset_type"`
	FileURL         string          `json:"file_url"`
	DurationSeconds *float64        `json:"duration_seconds"`
}

// SlotEntry 槽位条目. bgm 槽位的 Position 恒为 0.
type SlotEntry struct {
	ID       string         `json:"id"`
	Slot     model.SlotKind `json:"slot"`
	Position int            `json:"position"`
	AssetID  string         `json:"asset_id"`
	Asset    *AssetSummary  `json:"asset,omitempty"`
}

// Composition 项目的三个槽位.
type Composition struct {
	Base     []SlotEntry `json:"base"`
	Clippers []SlotEntry `json:"clippers"`
	BGM      *SlotEntry  `json:"bgm"`
}

// ProjectResponse 单个项目响应.
type ProjectResponse struct {
	Success bool           `json:"success"`
	Project *model.Project `json:"project"`
}

// ListProjectsResponse 项目列表响应.
type ListProjectsResponse struct {
	Success  bool            `json:"success"`
	Projects []model.Project `json:"projects"`
}

// CompositionResponse 项目槽位响应.
type CompositionResponse struct {
	Success bool `json:"success"`
	Composition
}

// SlotEntryResponse 槽位添加结果.
type SlotEntryResponse struct {
	Success bool       `json:"success"`
	Entry   *SlotEntry `json:"entry"`
}
