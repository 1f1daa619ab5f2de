package configs

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// S3Config MinIO S3存储配置.
// ImageBucket 与 AudioBucket 分别存放图片与音频素材，PublicBaseURL 用于拼接可公开访问的地址.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	ImageBucket     string `mapstructure:"image_bucket"    rule:"required"`
	AudioBucket     string `mapstructure:"audio_bucket"    rule:"required"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	PublicRead      bool   `mapstructure:"public_read"`
}

const (
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultImageBucket       = "user-images"    // 图片素材桶
	DefaultAudioBucket       = "user-audio"     // 音频素材桶
)

// GetEndpointURL 获取完整的端点URL，Endpoint 已带 scheme 时原样返回.
func (c *S3Config) GetEndpointURL() string {
	if strings.Contains(c.Endpoint, "://") {
		return strings.TrimRight(c.Endpoint, "/")
	}

	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// GetPublicBaseURL 返回公开访问前缀，未配置时回退到端点地址.
func (c *S3Config) GetPublicBaseURL() string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/")
	}

	return c.GetEndpointURL()
}

// Buckets 返回需要确保存在的全部桶.
func (c *S3Config) Buckets() []string {
	return []string{c.ImageBucket, c.AudioBucket}
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.image_bucket", DefaultImageBucket)
	v.SetDefault("s3.audio_bucket", DefaultAudioBucket)
	v.SetDefault("s3.public_base_url", "")
	v.SetDefault("s3.public_read", true)
}
