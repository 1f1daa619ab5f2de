package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	nlog "github.com/yeisme/clipstudio/pkg/log"
	"github.com/yeisme/clipstudio/pkg/metrics"
	"github.com/yeisme/clipstudio/pkg/queue"
)

// remoteDeleteTimeout 单次远端删除的时限.
const remoteDeleteTimeout = 30 * time.Second

// CleanupService 重试素材删除后残留的远端对象.
type CleanupService struct {
	db     *gorm.DB
	blobs  BlobStore
	videos VideoProcessor
	jobs   configs.JobsConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewCleanupService 创建清理服务.
func NewCleanupService(deps Deps) *CleanupService {
	return &CleanupService{
		db:     deps.DB,
		blobs:  deps.Blobs,
		videos: deps.Videos,
		jobs:   deps.config().Jobs,
		logger: nlog.Component("cleanup"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// remove 删除远端对象，视频与对象存储都视"已不存在"为成功.
func (s *CleanupService) remove(ctx context.Context, c *model.PendingCleanup) error {
	ctx, cancel := context.WithTimeout(ctx, remoteDeleteTimeout)
	defer cancel()

	if c.Kind == model.AssetVideo {
		if s.videos == nil {
			return errors.New("video processor not configured")
		}

		return s.videos.DeleteVideo(ctx, c.RemoteID)
	}

	if s.blobs == nil {
		return errors.New("blob store not configured")
	}

	return s.blobs.Delete(ctx, c.Bucket, c.ObjectPath)
}

// Attempt 执行一次删除并记录结果，返回远端删除的错误.
// 失败时按 min(2^attempts*base, max) 推迟下次重试，达到最大次数后标记为 abandoned.
func (s *CleanupService) Attempt(ctx context.Context, c *model.PendingCleanup) error {
	prevAttempts := c.Attempts
	remoteErr := s.remove(ctx, c)
	now := s.now()

	switch {
	case remoteErr == nil:
		c.Status = model.CleanupDone
		c.LastError = ""

		metrics.CleanupsTotal.WithLabelValues("done").Inc()
	case c.Attempts+1 >= s.maxAttempts():
		c.Attempts++
		c.Status = model.CleanupAbandoned
		c.LastError = remoteErr.Error()

		metrics.CleanupsTotal.WithLabelValues("abandoned").Inc()
		s.logger.Error().Err(remoteErr).Str("cleanup_id", c.ID).Str("asset_id", c.AssetID).
			Int("attempts", c.Attempts).Msg("cleanup abandoned")
	default:
		c.NextAttemptAt = now.Add(s.jobs.Backoff(c.Attempts))
		c.Attempts++
		c.LastError = remoteErr.Error()

		metrics.CleanupsTotal.WithLabelValues("retry").Inc()
		s.logger.Warn().Err(remoteErr).Str("cleanup_id", c.ID).Int("attempts", c.Attempts).
			Time("next_attempt_at", c.NextAttemptAt).Msg("cleanup failed, will retry")
	}

	c.UpdatedAt = now

	// 仅当记录仍是读取时的状态才更新，并发执行的另一方已处理时跳过
	res := s.db.WithContext(context.WithoutCancel(ctx)).Model(c).
		Where("status = ? AND attempts = ?", model.CleanupPending, prevAttempts).
		Select("status", "attempts", "last_error", "next_attempt_at", "updated_at").
		Updates(c)
	if res.Error != nil {
		return multierr.Append(remoteErr, fmt.Errorf("save cleanup %s: %w", c.ID, res.Error))
	}

	return remoteErr
}

func (s *CleanupService) maxAttempts() int {
	const defaultMaxAttempts = 8

	if s.jobs.CleanupMaxAttempts <= 0 {
		return defaultMaxAttempts
	}

	return s.jobs.CleanupMaxAttempts
}

// RunDue 处理到期的待清理记录，返回处理条数.
func (s *CleanupService) RunDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = s.jobs.CleanupBatch
	}

	var due []model.PendingCleanup

	err := s.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", model.CleanupPending, s.now()).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("load due cleanups: %w", err)
	}

	processed := 0

	for i := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		_ = s.Attempt(ctx, &due[i])
		processed++
	}

	return processed, nil
}

// RunOne 立即重试指定记录，不等待 next_attempt_at.记录不存在或已结束时不做任何事.
func (s *CleanupService) RunOne(ctx context.Context, id string) error {
	var c model.PendingCleanup

	err := s.db.WithContext(ctx).Where("id = ? AND status = ?", id, model.CleanupPending).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("load cleanup %s: %w", id, err)
	}

	return s.Attempt(ctx, &c)
}

// HandleDeleted 消费 clip.asset.deleted，对同步删除未成功的记录立即重试一次.
// 远端失败已记录在表中，由定时任务继续重试，这里不返回错误以免消息反复投递.
func (s *CleanupService) HandleDeleted(msg *message.Message) error {
	env, err := queue.ParseAssetDeleted(msg)
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("malformed asset deleted event")
		return nil
	}

	if env.Payload.Cleaned || env.Payload.CleanupID == "" {
		return nil
	}

	if err := s.RunOne(msg.Context(), env.Payload.CleanupID); err != nil {
		s.logger.Warn().Err(err).Str("cleanup_id", env.Payload.CleanupID).Msg("fast cleanup retry failed")
	}

	return nil
}
