package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/clipstudio/pkg/internal/model"
	nlog "github.com/yeisme/clipstudio/pkg/log"
)

// Migrate 自动迁移全部模型并写入默认存储等级.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return SeedTiers(ctx, db, model.DefaultTiers())
}

// SeedTiers 写入存储等级，已存在的等级不覆盖.
func SeedTiers(ctx context.Context, db *gorm.DB, tiers []model.StorageTier) error {
	for i := range tiers {
		tier := tiers[i]

		res := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tier_level"}}, DoNothing: true}).
			Create(&tier)
		if res.Error != nil {
			return fmt.Errorf("seed tier %d: %w", tier.TierLevel, res.Error)
		}

		if res.RowsAffected > 0 {
			nlog.Logger().Info().Int("tier_level", tier.TierLevel).Str("name", tier.Name).Msg("storage tier seeded")
		}
	}

	return nil
}
