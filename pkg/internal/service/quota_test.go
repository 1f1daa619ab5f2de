package service_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/yeisme/clipstudio/pkg/cache"
	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/errs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/service"
	"github.com/yeisme/clipstudio/pkg/internal/storage/kv"
)

// TestQuotaUsage_SumsOwnAssets 测试用量只统计本人的素材.
func TestQuotaUsage_SumsOwnAssets(t *testing.T) {
	e := newEnv(t)
	now := time.Now()

	e.seedAsset(t, "u1", model.AssetImage, 10, now)
	e.seedAsset(t, "u1", model.AssetAudio, 5.5, now.Add(time.Second))
	e.seedAsset(t, "u2", model.AssetImage, 100, now)

	usage, err := service.NewQuotaService(e.deps()).Usage(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}

	if usage.Used != 15.5 || usage.Limit != 500 {
		t.Errorf("Expected used 15.5 / limit 500, got %v / %v", usage.Used, usage.Limit)
	}

	if math.Abs(usage.Percentage-3.1) > 1e-9 {
		t.Errorf("Expected percentage 3.1, got %v", usage.Percentage)
	}
}

// TestQuotaUsage_NoAssets 测试没有素材时用量为 0.
func TestQuotaUsage_NoAssets(t *testing.T) {
	e := newEnv(t)

	usage, err := service.NewQuotaService(e.deps()).Usage(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}

	if usage.Used != 0 || usage.Percentage != 0 {
		t.Errorf("Expected zero usage, got %+v", usage)
	}
}

// TestQuota_ZeroLimit 测试上限为 0 时百分比为 0.
func TestQuota_ZeroLimit(t *testing.T) {
	e := newEnv(t)
	e.seedAsset(t, "u1", model.AssetImage, 1, time.Now())

	if err := e.db.Model(&model.StorageTier{}).Where("tier_level = 0").Update("storage_limit_mb", 0).Error; err != nil {
		t.Fatalf("update tier: %v", err)
	}

	usage, err := service.NewQuotaService(e.deps()).Usage(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}

	if usage.Percentage != 0 {
		t.Errorf("Expected percentage 0, got %v", usage.Percentage)
	}
}

// TestQuota_MissingTier 测试等级缺失时两种策略.
func TestQuota_MissingTier(t *testing.T) {
	cases := []struct {
		name      string
		policy    configs.MissingTierPolicy
		wantLimit float64
		wantErr   bool
	}{
		{"strict", configs.MissingTierStrict, 0, true},
		{"fallback", configs.MissingTierFallback, 200, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.cfg.Quota.MissingTierPolicy = tc.policy
			e.cfg.Quota.FallbackLimitMB = 200

			if err := e.db.Where("1 = 1").Delete(&model.StorageTier{}).Error; err != nil {
				t.Fatalf("delete tiers: %v", err)
			}

			limit, err := service.NewQuotaService(e.deps()).Limit(context.Background())
			if tc.wantErr {
				if !errors.Is(err, service.ErrTierNotFound) {
					t.Fatalf("Expected ErrTierNotFound, got %v", err)
				}

				if status := errs.From(err).HTTPStatus(); status != http.StatusInternalServerError {
					t.Errorf("Expected HTTP 500, got %d", status)
				}

				return
			}

			if err != nil || limit != tc.wantLimit {
				t.Errorf("Expected limit %v, got %v (%v)", tc.wantLimit, limit, err)
			}
		})
	}
}

// TestQuota_TierCache 测试等级上限经缓存读取，用量不缓存.
func TestQuota_TierCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, &configs.MemoryKVConfig{Size: 16})
	if err != nil {
		t.Fatalf("create kv: %v", err)
	}
	defer store.Close()

	deps := e.deps()
	deps.TierCache = cache.NewCache(store, cache.WithPrefix("tier:"))
	quota := service.NewQuotaService(deps)

	if _, err := quota.Usage(ctx, "u1"); err != nil {
		t.Fatalf("Usage failed: %v", err)
	}

	if err := e.db.Model(&model.StorageTier{}).Where("tier_level = 0").Update("storage_limit_mb", 1000).Error; err != nil {
		t.Fatalf("update tier: %v", err)
	}

	e.seedAsset(t, "u1", model.AssetImage, 50, time.Now())

	usage, err := quota.Usage(ctx, "u1")
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}

	if usage.Limit != 500 {
		t.Errorf("Expected cached limit 500, got %v", usage.Limit)
	}

	if usage.Used != 50 {
		t.Errorf("Expected fresh usage 50, got %v", usage.Used)
	}
}

// TestQuota_Tiers 测试列出存储等级.
func TestQuota_Tiers(t *testing.T) {
	e := newEnv(t)

	tiers, err := service.NewQuotaService(e.deps()).Tiers(context.Background())
	if err != nil {
		t.Fatalf("Tiers failed: %v", err)
	}

	if len(tiers) != 1 || tiers[0].Name != "free" || tiers[0].StorageLimitMB != 500 {
		t.Errorf("Expected default free tier, got %+v", tiers)
	}
}
