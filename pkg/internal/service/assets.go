package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/errs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/storage/s3"
	nlog "github.com/yeisme/clipstudio/pkg/log"
	"github.com/yeisme/clipstudio/pkg/queue"
)

// AssetService 素材登记表：列表、查询与删除.
type AssetService struct {
	db      *gorm.DB
	events  EventPublisher
	cleanup *CleanupService
	cfg     *configs.AppConfig
	logger  zerolog.Logger
}

// NewAssetService 创建素材服务.
func NewAssetService(deps Deps) *AssetService {
	return &AssetService{
		db:      deps.DB,
		events:  deps.events(),
		cleanup: NewCleanupService(deps),
		cfg:     deps.config(),
		logger:  nlog.Component("assets"),
	}
}

// List 按上传时间倒序列出用户素材，kind 为空时不过滤.
func (s *AssetService) List(ctx context.Context, userID, kind string) ([]model.Asset, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)

	if kind != "" {
		if !model.AssetType(kind).Valid() {
			return nil, errs.InvalidInput("Invalid asset type")
		}

		q = q.Where("asset_type = ?", kind)
	}

	assets := make([]model.Asset, 0)
	if err := q.Order("uploaded_at DESC").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	return assets, nil
}

// Get 获取单个素材.
func (s *AssetService) Get(ctx context.Context, userID, id string) (*model.Asset, error) {
	return findAsset(s.db.WithContext(ctx), userID, id)
}

func findAsset(db *gorm.DB, userID, id string) (*model.Asset, error) {
	var asset model.Asset

	err := db.Where("id = ? AND user_id = ?", id, userID).Take(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("Asset not found")
	}

	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}

	return &asset, nil
}

// Delete 删除素材.
// 事务内删除记录、移出所有槽位并写入待清理记录；提交后同步尝试删除远端对象.
// 远端删除失败只记录并交给清理任务重试，不影响返回值.
func (s *AssetService) Delete(ctx context.Context, userID, assetID string) error {
	var (
		asset   *model.Asset
		cleanup *model.PendingCleanup
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error

		asset, err = findAsset(tx, userID, assetID)
		if err != nil {
			return err
		}

		if err := tx.Delete(asset).Error; err != nil {
			return fmt.Errorf("delete asset: %w", err)
		}

		if err := detachAsset(tx, asset.ID); err != nil {
			return err
		}

		cleanup = s.newCleanup(asset)
		if err := tx.Create(cleanup).Error; err != nil {
			return fmt.Errorf("record cleanup: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	// 客户端断开不应中断远端删除
	bg := context.WithoutCancel(ctx)

	if cleanup.Status == model.CleanupPending {
		if rerr := s.cleanup.Attempt(bg, cleanup); rerr != nil {
			s.logger.Warn().Err(rerr).Str("asset_id", asset.ID).Str("cleanup_id", cleanup.ID).
				Msg("remote delete failed, scheduled for retry")
		}
	}

	payload := queue.AssetDeletedPayload{
		Asset:     assetRef(asset),
		CleanupID: cleanup.ID,
		Cleaned:   cleanup.Status != model.CleanupPending,
	}
	if perr := s.events.AssetDeleted(bg, payload); perr != nil {
		s.logger.Warn().Err(perr).Str("asset_id", asset.ID).Msg("publish asset deleted failed")
	}

	s.logger.Info().Str("asset_id", asset.ID).Str("cleanup_status", string(cleanup.Status)).Msg("asset deleted")

	return nil
}

// newCleanup 描述素材对应的远端对象.无法定位对象时直接记为 done 并写明原因.
func (s *AssetService) newCleanup(a *model.Asset) *model.PendingCleanup {
	c := &model.PendingCleanup{
		AssetID: a.ID,
		UserID:  a.UserID,
		Kind:    a.AssetType,
		Status:  model.CleanupPending,
	}

	if a.AssetType == model.AssetVideo {
		c.RemoteID = deref(a.CloudflareUID)
		if c.RemoteID == "" {
			c.Status = model.CleanupDone
			c.LastError = "video asset has no remote id"
		}

		return c
	}

	c.Bucket = bucketFor(s.cfg, a.AssetType)
	c.ObjectPath = s3.PathFromURL(c.Bucket, a.FileURL)

	if c.ObjectPath == "" {
		c.Status = model.CleanupDone
		c.LastError = "no object path in file url"
	}

	return c
}
