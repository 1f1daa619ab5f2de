package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AspectRatio 项目画幅.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
	AspectClassic   AspectRatio = "4:3"
)

// Valid 是否为受支持的画幅.
func (r AspectRatio) Valid() bool {
	switch r {
	case AspectLandscape, AspectPortrait, AspectSquare, AspectClassic:
		return true
	default:
		return false
	}
}

// Project 视频编辑项目.
type Project struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	UserID      string      `gorm:"size:255;not null;index:idx_projects_owner,priority:1" json:"user_id"`
	Name        string      `gorm:"size:255;not null" json:"name"`
	AspectRatio AspectRatio `gorm:"size:8;not null" json:"aspect_ratio"`
	CreatedAt   time.Time   `gorm:"not null;index:idx_projects_owner,priority:2" json:"created_at"`
}

// TableName 指定表名.
func (Project) TableName() string {
	return "projects"
}

// BeforeCreate 生成主键.
func (p *Project) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	return nil
}
