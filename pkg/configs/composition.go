package configs

import "github.com/spf13/viper"

const (
	DefaultMaxBaseClips    = 10
	DefaultMaxClipperClips = 10
)

// CompositionConfig 项目编排槽位上限.
type CompositionConfig struct {
	MaxBaseClips    int `mapstructure:"max_base_clips"    rule:"min=1"`
	MaxClipperClips int `mapstructure:"max_clipper_clips" rule:"min=1"`
}

func (c *CompositionConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("composition.max_base_clips", DefaultMaxBaseClips)
	v.SetDefault("composition.max_clipper_clips", DefaultMaxClipperClips)
}
