package configs

import "github.com/spf13/viper"

// EventsConfig 控制素材事件的发布开关.
type EventsConfig struct {
	Enabled bool              `mapstructure:"enabled"` // 总开关
	Asset   AssetEventsConfig `mapstructure:"asset"`
}

// AssetEventsConfig 素材领域的事件开关.
type AssetEventsConfig struct {
	Stored  bool `mapstructure:"stored"`
	Deleted bool `mapstructure:"deleted"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.asset.stored", true)
	v.SetDefault("events.asset.deleted", true)
}
