package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MissingTierPolicy 用户所在等级在 storage_tiers 中不存在时的处理方式.
type MissingTierPolicy string

const (
	// MissingTierStrict 视为内部错误.
	MissingTierStrict MissingTierPolicy = "strict"
	// MissingTierFallback 使用 FallbackLimitMB 作为上限.
	MissingTierFallback MissingTierPolicy = "fallback"

	DefaultMaxUploadMB     = 50.0
	DefaultFallbackLimitMB = 500.0
	DefaultTierCacheTTL    = time.Minute
)

// QuotaConfig 上传大小与存储配额配置.
type QuotaConfig struct {
	MaxUploadMB       float64           `mapstructure:"max_upload_mb"       rule:"gt=0"`
	DefaultTierLevel  int               `mapstructure:"default_tier_level"  rule:"min=0"`
	MissingTierPolicy MissingTierPolicy `mapstructure:"missing_tier_policy" rule:"oneof=strict fallback"`
	FallbackLimitMB   float64           `mapstructure:"fallback_limit_mb"   rule:"gte=0"`
	TierCacheTTL      time.Duration     `mapstructure:"tier_cache_ttl"`
}

func (c *QuotaConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("quota.max_upload_mb", DefaultMaxUploadMB)
	v.SetDefault("quota.default_tier_level", 0)
	v.SetDefault("quota.missing_tier_policy", MissingTierStrict)
	v.SetDefault("quota.fallback_limit_mb", DefaultFallbackLimitMB)
	v.SetDefault("quota.tier_cache_ttl", DefaultTierCacheTTL)
}
