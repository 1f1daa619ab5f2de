package model

import (
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"
)

// CleanupStatus 远端对象清理状态.
type CleanupStatus string

const (
	CleanupPending   CleanupStatus = "pending"
	CleanupDone      CleanupStatus = "done"
	CleanupAbandoned CleanupStatus = "abandoned"
)

var (
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
	ulidMu      sync.Mutex
)

// NewULID 生成按时间单调递增的 ID.
func NewULID(t time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

// PendingCleanup 记录素材删除后尚待清理的远端对象.
// 视频使用 RemoteID，图片与音频使用 Bucket + ObjectPath.
type PendingCleanup struct {
	ID            string        `gorm:"primaryKey;size:26" json:"id"`
	AssetID       string        `gorm:"size:36;not null;index" json:"asset_id"`
	UserID        string        `gorm:"size:255;not null" json:"user_id"`
	Kind          AssetType     `gorm:"size:16;not null" json:"kind"`
	RemoteID      string        `gorm:"size:64" json:"remote_id,omitempty"`
	Bucket        string        `gorm:"size:255" json:"bucket,omitempty"`
	ObjectPath    string        `gorm:"size:1024" json:"object_path,omitempty"`
	Attempts      int           `gorm:"not null;default:0" json:"attempts"`
	LastError     string        `gorm:"type:text" json:"last_error,omitempty"`
	Status        CleanupStatus `gorm:"size:16;not null;index:idx_cleanup_due,priority:1" json:"status"`
	NextAttemptAt time.Time     `gorm:"not null;index:idx_cleanup_due,priority:2" json:"next_attempt_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName 指定表名.
func (PendingCleanup) TableName() string {
	return "pending_cleanups"
}

// BeforeCreate 生成 ULID 并补齐状态.
func (p *PendingCleanup) BeforeCreate(_ *gorm.DB) error {
	now := time.Now().UTC()

	if p.ID == "" {
		p.ID = NewULID(now)
	}

	if p.Status == "" {
		p.Status = CleanupPending
	}

	if p.NextAttemptAt.IsZero() {
		p.NextAttemptAt = now
	}

	return nil
}
