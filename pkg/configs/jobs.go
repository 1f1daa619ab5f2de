package configs

import (
	"time"

	"github.com/spf13/viper"
)

// JobsConfig 后台任务配置.
type JobsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CleanupCron        string        `mapstructure:"cleanup_cron"`
	CleanupBatch       int           `mapstructure:"cleanup_batch"        rule:"min=1"`
	CleanupMaxAttempts int           `mapstructure:"cleanup_max_attempts" rule:"min=1"`
	CleanupBackoffBase time.Duration `mapstructure:"cleanup_backoff_base"`
	CleanupBackoffMax  time.Duration `mapstructure:"cleanup_backoff_max"`
	ConsumerEnabled    bool          `mapstructure:"consumer_enabled"`
}

// Backoff 返回第 attempts 次失败后的等待时间：min(2^attempts*base, max).
func (c *JobsConfig) Backoff(attempts int) time.Duration {
	base := c.CleanupBackoffBase
	if base <= 0 {
		base = 30 * time.Second
	}

	limit := c.CleanupBackoffMax
	if limit <= 0 {
		limit = time.Hour
	}

	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}

	return d
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.cleanup_cron", "* * * * *")
	v.SetDefault("jobs.cleanup_batch", 50)
	v.SetDefault("jobs.cleanup_max_attempts", 8)
	v.SetDefault("jobs.cleanup_backoff_base", 30*time.Second)
	v.SetDefault("jobs.cleanup_backoff_max", time.Hour)
	v.SetDefault("jobs.consumer_enabled", true)
}
