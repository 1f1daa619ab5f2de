package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultStreamAPIBase           = "https://api.cloudflare.com/client/v4"
	DefaultStreamPollInterval      = 5 * time.Second
	DefaultStreamProcessingTimeout = 5 * time.Minute
	DefaultStreamMaxDuration       = 600 // 直传上传允许的最长视频时长（秒）
	DefaultStreamHTTPTimeout       = 2 * time.Minute
)

// StreamConfig 远端视频服务配置.
type StreamConfig struct {
	AccountID          string        `mapstructure:"account_id"`
	APIToken           string        `mapstructure:"api_token"`
	APIBase            string        `mapstructure:"api_base"             rule:"required,url"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	ProcessingTimeout  time.Duration `mapstructure:"processing_timeout"`
	MaxDurationSeconds int           `mapstructure:"max_duration_seconds" rule:"min=1"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	CircuitBreaker     bool          `mapstructure:"circuit_breaker"`
}

// GetPollInterval 返回轮询间隔，非法值回退到默认.
func (c *StreamConfig) GetPollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return DefaultStreamPollInterval
	}

	return c.PollInterval
}

// GetProcessingTimeout 返回等待远端处理完成的总时长.
func (c *StreamConfig) GetProcessingTimeout() time.Duration {
	if c.ProcessingTimeout <= 0 {
		return DefaultStreamProcessingTimeout
	}

	return c.ProcessingTimeout
}

func (c *StreamConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("stream.account_id", "")
	v.SetDefault("stream.api_token", "")
	v.SetDefault("stream.api_base", DefaultStreamAPIBase)
	v.SetDefault("stream.poll_interval", DefaultStreamPollInterval)
	v.SetDefault("stream.processing_timeout", DefaultStreamProcessingTimeout)
	v.SetDefault("stream.max_duration_seconds", DefaultStreamMaxDuration)
	v.SetDefault("stream.http_timeout", DefaultStreamHTTPTimeout)
	v.SetDefault("stream.circuit_breaker", true)
}
