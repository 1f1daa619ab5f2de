package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yeisme/clipstudio/pkg/cache"
	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/types"
	nlog "github.com/yeisme/clipstudio/pkg/log"
)

// ErrTierNotFound 配置的默认等级在 storage_tiers 中不存在.
var ErrTierNotFound = errors.New("storage tier not found")

// QuotaService 计算用户存储用量与上限.用量每次实时汇总，不做缓存.
type QuotaService struct {
	db        *gorm.DB
	tierCache *cache.Cache
	cfg       configs.QuotaConfig
	logger    zerolog.Logger
}

// NewQuotaService 创建配额服务.
func NewQuotaService(deps Deps) *QuotaService {
	return &QuotaService{
		db:        deps.DB,
		tierCache: deps.TierCache,
		cfg:       deps.config().Quota,
		logger:    nlog.Component("quota"),
	}
}

// Used 返回用户已用容量（MB）.
func (s *QuotaService) Used(ctx context.Context, userID string) (float64, error) {
	var used float64

	err := s.db.WithContext(ctx).Model(&model.Asset{}).
		Select("COALESCE(SUM(file_size_mb), 0)").
		Where("user_id = ?", userID).
		Scan(&used).Error
	if err != nil {
		return 0, fmt.Errorf("sum storage usage: %w", err)
	}

	return used, nil
}

// Limit 返回默认等级的容量上限（MB），等级缺失时按配置的策略处理.
func (s *QuotaService) Limit(ctx context.Context) (float64, error) {
	tier, err := s.defaultTier(ctx)
	if err == nil {
		return tier.StorageLimitMB, nil
	}

	if !errors.Is(err, ErrTierNotFound) {
		return 0, err
	}

	if s.cfg.MissingTierPolicy == configs.MissingTierFallback {
		s.logger.Warn().Int("tier_level", s.cfg.DefaultTierLevel).Float64("fallback_limit_mb", s.cfg.FallbackLimitMB).
			Msg("storage tier missing, using fallback limit")

		return s.cfg.FallbackLimitMB, nil
	}

	return 0, err
}

func (s *QuotaService) defaultTier(ctx context.Context) (model.StorageTier, error) {
	load := func() (model.StorageTier, error) {
		return s.loadTier(ctx, s.cfg.DefaultTierLevel)
	}

	if s.tierCache == nil || s.cfg.TierCacheTTL <= 0 {
		return load()
	}

	return cache.GetOrSet(ctx, s.tierCache, strconv.Itoa(s.cfg.DefaultTierLevel), load, s.cfg.TierCacheTTL)
}

func (s *QuotaService) loadTier(ctx context.Context, level int) (model.StorageTier, error) {
	var tier model.StorageTier

	err := s.db.WithContext(ctx).Where("tier_level = ?", level).Take(&tier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tier, fmt.Errorf("tier level %d: %w", level, ErrTierNotFound)
	}

	if err != nil {
		return tier, fmt.Errorf("load storage tier: %w", err)
	}

	return tier, nil
}

// Usage 返回用量、上限与百分比.上限为 0 时百分比为 0.
func (s *QuotaService) Usage(ctx context.Context, userID string) (types.StorageUsage, error) {
	used, err := s.Used(ctx, userID)
	if err != nil {
		return types.StorageUsage{}, err
	}

	limit, err := s.Limit(ctx)
	if err != nil {
		return types.StorageUsage{}, err
	}

	usage := types.StorageUsage{Used: used, Limit: limit}
	if limit > 0 {
		usage.Percentage = used / limit * 100
	}

	return usage, nil
}

// Tiers 列出全部存储等级.
func (s *QuotaService) Tiers(ctx context.Context) ([]model.StorageTier, error) {
	var tiers []model.StorageTier

	if err := s.db.WithContext(ctx).Order("tier_level ASC").Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("list storage tiers: %w", err)
	}

	return tiers, nil
}
