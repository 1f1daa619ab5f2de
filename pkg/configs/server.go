package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort          = 8080      // 监听端口
	DefaultHost          = "0.0.0.0" // 监听地址
	DefaultReloadConfig  = true      // 是否启用配置热重载
	DefaultDebug         = false     // 是否启用调试模式
	DefaultTimeout       = 30        // 普通请求超时时间，单位秒
	DefaultUploadTimeout = 420       // 上传请求超时时间，单位秒，需覆盖远端视频处理的轮询预算
	DefaultMaxMultipart  = 64        // multipart 内存缓冲上限（MB），超出部分落盘
	DefaultCompression   = true      // 是否对 JSON 响应启用 gzip
)

type (
	// ServerConfig 服务器配置.
	ServerConfig struct {
		Port          int    `mapstructure:"port"           rule:"min=1,max=65535"`
		Host          string `mapstructure:"host"           rule:"ip"`
		ReloadConfig  bool   `mapstructure:"reload_config"`
		Debug         bool   `mapstructure:"debug"`
		Timeout       int    `mapstructure:"timeout"        rule:"min=1,max=300"`
		UploadTimeout int    `mapstructure:"upload_timeout" rule:"min=1,max=3600"`
		MaxMultipart  int64  `mapstructure:"max_multipart"  rule:"min=1"`
		Compression   bool   `mapstructure:"compression"`
	}
)

// GetTimeoutDuration 返回超时时间作为time.Duration.
func (s *ServerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetUploadTimeoutDuration 返回上传请求的超时时间.
func (s *ServerConfig) GetUploadTimeoutDuration() time.Duration {
	return time.Duration(s.UploadTimeout) * time.Second
}

// setDefaults 设置服务器配置的默认值.
func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
	v.SetDefault("server.timeout", DefaultTimeout)
	v.SetDefault("server.upload_timeout", DefaultUploadTimeout)
	v.SetDefault("server.max_multipart", DefaultMaxMultipart)
	v.SetDefault("server.compression", DefaultCompression)
}
