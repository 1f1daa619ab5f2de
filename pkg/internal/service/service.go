// Package service 实现素材、配额、项目编排与清理任务的业务逻辑.
//
// 服务通过构造函数接收依赖，请求路径上由 FromContext 从注入的存储 Manager 组装.
package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/yeisme/clipstudio/pkg/cache"
	"github.com/yeisme/clipstudio/pkg/configs"
	ctxPkg "github.com/yeisme/clipstudio/pkg/context"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/storage"
	"github.com/yeisme/clipstudio/pkg/internal/storage/s3"
	"github.com/yeisme/clipstudio/pkg/internal/types"
)

// BlobStore 图片与音频的对象存储.
type BlobStore interface {
	Store(ctx context.Context, bucket, ownerID string, file *types.FileInput) (string, error)
	Delete(ctx context.Context, bucket, path string) error
}

// VideoProcessor 远端视频转码服务.
type VideoProcessor interface {
	ProcessVideo(ctx context.Context, file *types.FileInput) (*types.VideoResult, error)
	DeleteVideo(ctx context.Context, uid string) error
}

// Deps 服务依赖.Events 与 TierCache 可为空.
type Deps struct {
	DB        *gorm.DB
	Blobs     BlobStore
	Videos    VideoProcessor
	Events    EventPublisher
	TierCache *cache.Cache
	Config    *configs.AppConfig
}

func (d Deps) events() EventPublisher {
	if d.Events == nil {
		return nopPublisher{}
	}

	return d.Events
}

func (d Deps) config() *configs.AppConfig {
	if d.Config == nil {
		return configs.GetConfig()
	}

	return d.Config
}

// FromContext 从请求上下文中的存储 Manager 组装依赖.
func FromContext(ctx context.Context) Deps {
	return FromManager(ctxPkg.GetManager(ctx), configs.GetConfig())
}

// FromManager 按 Manager 中已初始化的客户端组装依赖，未初始化的组件保持为空.
func FromManager(m *storage.Manager, cfg *configs.AppConfig) Deps {
	deps := Deps{Config: cfg}
	if m == nil {
		return deps
	}

	if m.DB != nil {
		deps.DB = m.DB.GetDB()
	}

	if m.S3 != nil {
		deps.Blobs = s3.NewBlobStore(m.S3)
	}

	if m.Stream != nil {
		deps.Videos = m.Stream
	}

	if m.KV != nil {
		deps.TierCache = cache.NewCache(m.KV, cache.WithPrefix("tier:"))
	}

	if m.MQ != nil {
		deps.Events = NewEventPublisher(m.MQ.Publisher(), cfg.Events)
	}

	return deps
}

// bucketFor 返回图片与音频对应的桶，视频没有桶.
func bucketFor(cfg *configs.AppConfig, kind model.AssetType) string {
	switch kind {
	case model.AssetImage:
		return cfg.S3.ImageBucket
	case model.AssetAudio:
		return cfg.S3.AudioBucket
	default:
		return ""
	}
}
