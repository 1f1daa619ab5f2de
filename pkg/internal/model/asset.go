package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetType 素材类型，创建后不可变.
type AssetType string

const (
	AssetVideo AssetType = "video"
	AssetImage AssetType = "image"
	AssetAudio AssetType = "audio"
)

// Valid 是否为受支持的素材类型.
func (t AssetType) Valid() bool {
	switch t {
	case AssetVideo, AssetImage, AssetAudio:
		return true
	default:
		return false
	}
}

// Asset 用户上传的素材. 视频素材必带 CloudflareUID，图片与音频素材从不携带.
type Asset struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	UserID          string         `gorm:"size:255;not null;index:idx_user_assets_owner,priority:1" json:"user_id"`
	AssetType       AssetType      `gorm:"column:asset_type;size:16;not null;index" json:"asset_type"`
	Filename        string         `gorm:"size:512;not null" json:"filename"`
	FileURL         string         `gorm:"column:file_url;size:2048;not null" json:"file_url"`
	CloudflareUID   *string        `gorm:"column:cloudflare_uid;size:64" json:"cloudflare_uid"`
	FileSizeMB      float64        `gorm:"column:file_size_mb;not null" json:"file_size_mb"`
	DurationSeconds *float64       `gorm:"column:duration_seconds" json:"duration_seconds"`
	Metadata        map[string]any `gorm:"type:text;serializer:json" json:"metadata"`
	UploadedAt      time.Time      `gorm:"column:uploaded_at;not null;index:idx_user_assets_owner,priority:2" json:"uploaded_at"`
}

// TableName 指定表名.
func (Asset) TableName() string {
	return "user_assets"
}

// BeforeCreate 生成主键并补齐默认值.
func (a *Asset) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}

	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}

	return nil
}
