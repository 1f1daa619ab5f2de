package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"

	"github.com/yeisme/clipstudio/pkg/internal/types"
)

// ErrObjectExists 目标路径已存在对象，拒绝覆盖.
var ErrObjectExists = errors.New("object already exists")

// BlobStore 把图片与音频写入对象存储并生成公开 URL.
type BlobStore struct {
	client  *minio.Client
	baseURL string
	now     func() time.Time
}

// NewBlobStore 基于已连接的客户端创建 BlobStore.
func NewBlobStore(c *Client) *BlobStore {
	cfg := c.GetConfig()

	return &BlobStore{
		client:  c.Client,
		baseURL: cfg.GetPublicBaseURL(),
		now:     time.Now,
	}
}

// ObjectPath 生成对象路径 {owner}/{unixMillis}.{ext}.
// ext 取文件名最后一个 "." 之后的部分，没有 "." 时取整个文件名.
func ObjectPath(ownerID, filename string, at time.Time) string {
	ext := filename
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		ext = filename[idx+1:]
	}

	return fmt.Sprintf("%s/%d.%s", ownerID, at.UnixMilli(), ext)
}

// PublicURL 拼接对象的公开访问地址.
func PublicURL(baseURL, bucket, path string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(baseURL, "/"), bucket, path)
}

// PathFromURL 取 URL 中 "/{bucket}/" 之后的部分，不包含时返回空串.
func PathFromURL(bucket, rawURL string) string {
	marker := "/" + bucket + "/"

	idx := strings.Index(rawURL, marker)
	if idx < 0 {
		return ""
	}

	return rawURL[idx+len(marker):]
}

// Store 写入文件并返回公开 URL，目标路径已存在时返回 ErrObjectExists.
func (b *BlobStore) Store(ctx context.Context, bucket, ownerID string, file *types.FileInput) (string, error) {
	path := ObjectPath(ownerID, file.Filename, b.now())

	// 先查后写并非原子操作，同一毫秒内的并发写入仍可能互相覆盖.
	_, err := b.client.StatObject(ctx, bucket, path, minio.StatObjectOptions{})
	if err == nil {
		return "", fmt.Errorf("%s/%s: %w", bucket, path, ErrObjectExists)
	}

	if !isNotFound(err) {
		return "", fmt.Errorf("stat object %s/%s: %w", bucket, path, err)
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = b.client.PutObject(ctx, bucket, path, file.Body, file.Size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=3600",
		UserMetadata: map[string]string{"original-filename": file.Filename},
	})
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", bucket, path, err)
	}

	return PublicURL(b.baseURL, bucket, path), nil
}

// Delete 删除对象，对象不存在视为成功.
func (b *BlobStore) Delete(ctx context.Context, bucket, path string) error {
	if err := b.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return fmt.Errorf("remove object %s/%s: %w", bucket, path, err)
	}

	return nil
}

// PathFromURL 见包级函数 PathFromURL.
func (b *BlobStore) PathFromURL(bucket, rawURL string) string {
	return PathFromURL(bucket, rawURL)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)

	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject"
}
