// Package s3 处理S3存储操作.
package s3

import (
	"context"
	"fmt"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/clipstudio/pkg/configs"
	nlog "github.com/yeisme/clipstudio/pkg/log"
)

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client
	cfg configs.S3Config
}

// publicReadPolicy 允许匿名读取桶内对象，素材 URL 直接交给前端播放.
const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

// New 初始化 MinIO 客户端，确保图片与音频桶存在.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	c := *cfg

	endpoint := c.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			c.UseSSL = true
		}
	}

	c.Endpoint = endpoint

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKeyID, c.SecretAccessKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	for _, bkt := range c.Buckets() {
		if err := ensureBucket(ctx, cli, bkt, &c); err != nil {
			return nil, err
		}
	}

	nlog.Logger().Info().Str("endpoint", c.Endpoint).Strs("buckets", c.Buckets()).Msg("s3 connected")

	return &Client{Client: cli, cfg: c}, nil
}

func ensureBucket(ctx context.Context, cli *minio.Client, bkt string, cfg *configs.S3Config) error {
	if bkt == "" {
		return nil
	}

	exists, err := cli.BucketExists(ctx, bkt)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bkt, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, bkt, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bkt, err)
		}

		nlog.Logger().Info().Str("bucket", bkt).Msg("bucket created")
	}

	if cfg.PublicRead {
		if err := cli.SetBucketPolicy(ctx, bkt, fmt.Sprintf(publicReadPolicy, bkt)); err != nil {
			return fmt.Errorf("set public policy on %s: %w", bkt, err)
		}
	}

	return nil
}

// HealthCheck 简单的健康检查，通过列出桶来验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListBuckets(ctx)
	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

// GetConfig 返回客户端使用的配置副本.
func (c *Client) GetConfig() configs.S3Config {
	return c.cfg
}
