package db_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/clipstudio/pkg/internal/model"
	dbc "github.com/yeisme/clipstudio/pkg/internal/storage/db"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)

	return gdb
}

// TestMigrate_SeedsDefaultTier 测试迁移写入默认等级且重复执行不会重复写入.
func TestMigrate_SeedsDefaultTier(t *testing.T) {
	ctx := context.Background()
	gdb := openMemory(t)

	for range 2 {
		if err := dbc.Migrate(ctx, gdb); err != nil {
			t.Fatalf("Expected migrate to succeed, got %v", err)
		}
	}

	var tiers []model.StorageTier
	if err := gdb.Find(&tiers).Error; err != nil {
		t.Fatalf("query tiers: %v", err)
	}

	if len(tiers) != 1 {
		t.Fatalf("Expected 1 tier, got %d", len(tiers))
	}

	if tiers[0].TierLevel != 0 || tiers[0].Name != "free" || tiers[0].StorageLimitMB != 500 {
		t.Errorf("Expected {0 free 500}, got %+v", tiers[0])
	}
}

// TestSeedTiers_KeepsExisting 测试已存在的等级不被覆盖.
func TestSeedTiers_KeepsExisting(t *testing.T) {
	ctx := context.Background()
	gdb := openMemory(t)

	if err := dbc.Migrate(ctx, gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gdb.Model(&model.StorageTier{}).Where("tier_level = ?", 0).Update("storage_limit_mb", 2048)

	if err := dbc.SeedTiers(ctx, gdb, model.DefaultTiers()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var tier model.StorageTier
	gdb.Where("tier_level = ?", 0).First(&tier)

	if tier.StorageLimitMB != 2048 {
		t.Errorf("Expected existing limit 2048 to be kept, got %v", tier.StorageLimitMB)
	}
}
