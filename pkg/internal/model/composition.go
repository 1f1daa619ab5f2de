package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SlotKind 项目内的素材槽位.
type SlotKind string

const (
	SlotBase     SlotKind = "base"
	SlotClippers SlotKind = "clippers"
	SlotBGM      SlotKind = "bgm"
)

// Valid 是否为已知槽位.
func (s SlotKind) Valid() bool {
	switch s {
	case SlotBase, SlotClippers, SlotBGM:
		return true
	default:
		return false
	}
}

// Accepts 槽位是否接受该类型的素材.
func (s SlotKind) Accepts(t AssetType) bool {
	switch s {
	case SlotBase:
		return t == AssetVideo
	case SlotClippers:
		return t == AssetVideo || t == AssetImage
	case SlotBGM:
		return t == AssetAudio
	default:
		return false
	}
}

// BaseClip 主轨视频，同一项目内 position 从 0 连续编号.
type BaseClip struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string `gorm:"size:36;not null;uniqueIndex:uq_va_base_position,priority:1" json:"project_id"`
	AssetID   string `gorm:"size:36;not null;index" json:"asset_id"`
	Position  int    `gorm:"not null;uniqueIndex:uq_va_base_position,priority:2" json:"position"`
}

// TableName 指定表名.
func (BaseClip) TableName() string { return "va_base" }

// BeforeCreate 生成主键.
func (b *BaseClip) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	return nil
}

// ClipperClip 叠加片段（视频或图片）.
type ClipperClip struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string `gorm:"size:36;not null;uniqueIndex:uq_va_clippers_position,priority:1" json:"project_id"`
	AssetID   string `gorm:"size:36;not null;index" json:"asset_id"`
	Position  int    `gorm:"not null;uniqueIndex:uq_va_clippers_position,priority:2" json:"position"`
}

// TableName 指定表名.
func (ClipperClip) TableName() string { return "va_clippers" }

// BeforeCreate 生成主键.
func (c *ClipperClip) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	return nil
}

// BGMTrack 背景音乐，每个项目至多一条.
type BGMTrack struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string `gorm:"size:36;not null;uniqueIndex" json:"project_id"`
	AssetID   string `gorm:"size:36;not null;index" json:"asset_id"`
}

// TableName 指定表名.
func (BGMTrack) TableName() string { return "va_bgm" }

// BeforeCreate 生成主键.
func (b *BGMTrack) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	return nil
}
