package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/errs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/stream"
	"github.com/yeisme/clipstudio/pkg/internal/types"
	nlog "github.com/yeisme/clipstudio/pkg/log"
	"github.com/yeisme/clipstudio/pkg/metrics"
	"github.com/yeisme/clipstudio/pkg/queue"
)

// UploadService 校验配额后把文件分发到远端视频服务或对象存储，并登记素材.
type UploadService struct {
	db     *gorm.DB
	blobs  BlobStore
	videos VideoProcessor
	events EventPublisher
	quota  *QuotaService
	cfg    *configs.AppConfig
	logger zerolog.Logger
}

// NewUploadService 创建上传服务.
func NewUploadService(deps Deps) *UploadService {
	return &UploadService{
		db:     deps.DB,
		blobs:  deps.Blobs,
		videos: deps.Videos,
		events: deps.events(),
		quota:  NewQuotaService(deps),
		cfg:    deps.config(),
		logger: nlog.Component("upload"),
	}
}

// Upload 上传一个素材并返回落库后的记录.
func (s *UploadService) Upload(ctx context.Context, userID string, file *types.FileInput, kind string) (asset *model.Asset, err error) {
	start := time.Now()
	assetType := model.AssetType(kind)

	defer func() {
		result := "ok"
		if err != nil {
			result = strings.ToLower(string(errs.CodeOf(err)))
		}

		metrics.UploadsTotal.WithLabelValues(kind, result).Inc()
		metrics.UploadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if file == nil || file.Body == nil {
		return nil, errs.InvalidInput("No file provided")
	}

	if !assetType.Valid() {
		return nil, errs.InvalidInput("Invalid asset type")
	}

	sizeMB := file.SizeMB()
	if maxMB := s.cfg.Quota.MaxUploadMB; sizeMB > maxMB {
		return nil, errs.QuotaOrSize(fmt.Sprintf("File size exceeds %gMB limit", maxMB))
	}

	usage, err := s.quota.Usage(ctx, userID)
	if err != nil {
		return nil, err
	}

	if usage.Used+sizeMB > usage.Limit {
		return nil, errs.QuotaOrSize(fmt.Sprintf("Storage limit exceeded. You have %.2fMB remaining.", usage.Limit-usage.Used))
	}

	asset = &model.Asset{
		UserID:     userID,
		AssetType:  assetType,
		Filename:   file.Filename,
		FileSizeMB: sizeMB,
		Metadata:   map[string]any{},
	}

	if err := s.dispatch(ctx, userID, file, asset); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("file_url", asset.FileURL).
			Str("remote_id", deref(asset.CloudflareUID)).Msg("asset stored remotely but not saved, object orphaned")

		return nil, errs.Persistence(err)
	}

	s.logger.Info().Str("asset_id", asset.ID).Str("type", kind).Float64("size_mb", sizeMB).Msg("asset uploaded")

	payload := queue.AssetStoredPayload{
		Asset:    assetRef(asset),
		Filename: asset.Filename,
		SizeMB:   asset.FileSizeMB,
	}
	if perr := s.events.AssetStored(ctx, payload); perr != nil {
		s.logger.Warn().Err(perr).Str("asset_id", asset.ID).Msg("publish asset stored failed")
	}

	return asset, nil
}

// dispatch 按素材类型写入远端，回填 FileURL 等字段.
func (s *UploadService) dispatch(ctx context.Context, userID string, file *types.FileInput, asset *model.Asset) error {
	if asset.AssetType == model.AssetVideo {
		res, err := s.videos.ProcessVideo(ctx, file)
		if err != nil {
			return remoteError(err)
		}

		asset.FileURL = res.ManifestURL
		asset.CloudflareUID = &res.UID
		asset.DurationSeconds = &res.DurationSeconds

		return nil
	}

	bucket := bucketFor(s.cfg, asset.AssetType)

	url, err := s.blobs.Store(ctx, bucket, userID, file)
	if err != nil {
		return fmt.Errorf("store %s: %w", asset.AssetType, err)
	}

	asset.FileURL = url

	return nil
}

// remoteError 把远端视频服务的错误映射为错误码.
func remoteError(err error) error {
	var rf *stream.RemoteRequestFailed

	switch {
	case errors.As(err, &rf):
		return errs.Wrap(errs.CodeRemoteRequestFailed, err, "")
	case errors.Is(err, stream.ErrRemoteProcessingFailed):
		return errs.Wrap(errs.CodeRemoteProcessingFailed, err, "")
	case errors.Is(err, stream.ErrRemoteProcessingTimeout):
		return errs.Wrap(errs.CodeRemoteProcessingTimeout, err, "")
	default:
		return err
	}
}

func assetRef(a *model.Asset) queue.AssetRef {
	return queue.AssetRef{
		AssetID:   a.ID,
		UserID:    a.UserID,
		AssetType: string(a.AssetType),
		FileURL:   a.FileURL,
		RemoteID:  deref(a.CloudflareUID),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
