package configs

import "github.com/spf13/viper"

// AuthConfig 控制 Bearer 令牌校验. 令牌使用 HS256 签名，sub 声明即用户ID.
type AuthConfig struct {
	Enabled   bool     `mapstructure:"enabled"`    // 开启认证校验
	JWTSecret string   `mapstructure:"jwt_secret"` // HS256 签名密钥
	Issuer    string   `mapstructure:"issuer"`     // 非空时校验 iss 声明
	SkipPaths []string `mapstructure:"skip_paths"` // 跳过认证的路径前缀
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/health",
	})
}
