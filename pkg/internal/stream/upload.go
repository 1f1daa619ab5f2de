package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/yeisme/clipstudio/pkg/internal/types"
)

// DirectUpload 直传上传地址.
type DirectUpload struct {
	UploadURL string `json:"uploadURL"`
	UID       string `json:"uid"`
}

type directUploadRequest struct {
	MaxDurationSeconds int      `json:"maxDurationSeconds"`
	RequireSignedURLs  bool     `json:"requireSignedURLs"`
	AllowedOrigins     []string `json:"allowedOrigins"`
}

// CreateDirectUpload 申请一次性直传地址.
func (c *Client) CreateDirectUpload(ctx context.Context) (*DirectUpload, error) {
	maxDuration := c.cfg.MaxDurationSeconds
	if maxDuration <= 0 {
		maxDuration = 600
	}

	resp, err := c.callAPI(ctx, http.MethodPost, c.accountURL("direct_upload"), directUploadRequest{
		MaxDurationSeconds: maxDuration,
		RequireSignedURLs:  false,
		AllowedOrigins:     []string{"*"},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpCreateUpload, err)
	}

	if !resp.ok() {
		return nil, resp.failure(OpCreateUpload)
	}

	du, err := decodeResult[DirectUpload](resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpCreateUpload, err)
	}

	if du.UploadURL == "" || du.UID == "" {
		return nil, fmt.Errorf("%s: empty uploadURL or uid", OpCreateUpload)
	}

	return &du, nil
}

// UploadFile 以 multipart 表单（字段 file）把文件流式写入直传地址.
func (c *Client) UploadFile(ctx context.Context, uploadURL string, file *types.FileInput) error {
	body, contentType, length, err := multipartBody(file)
	if err != nil {
		return fmt.Errorf("%s: %w", OpUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", OpUpload, err)
	}

	req.Header.Set("Content-Type", contentType)

	if length > 0 {
		req.ContentLength = length
	}

	resp, err := c.send(req)
	if err != nil {
		return fmt.Errorf("%s: %w", OpUpload, err)
	}

	if !resp.ok() {
		failure := resp.failure(OpUpload)
		c.logger.Error().Int("status", failure.StatusCode).Str("body", failure.Body).
			Str("filename", file.Filename).Msg("remote upload failed")

		return failure
	}

	return nil
}

// multipartBody 拼出 "头部 + 文件 + 结尾边界"，文件大小已知时可给出准确的 Content-Length.
func multipartBody(file *types.FileInput) (io.Reader, string, int64, error) {
	fileType := file.ContentType
	if fileType == "" {
		fileType = "application/octet-stream"
	}

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Filename)))
	h.Set("Content-Type", fileType)

	if _, err := mw.CreatePart(h); err != nil {
		return nil, "", 0, err
	}

	head := bytes.Clone(buf.Bytes())
	buf.Reset()

	if err := mw.Close(); err != nil {
		return nil, "", 0, err
	}

	tail := bytes.Clone(buf.Bytes())

	var length int64
	if file.Size > 0 {
		length = int64(len(head)) + file.Size + int64(len(tail))
	}

	body := io.MultiReader(bytes.NewReader(head), file.Body, bytes.NewReader(tail))

	return body, mw.FormDataContentType(), length, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// ProcessVideo 完成上传、等待转码并返回播放地址.
// 上传或处理失败时尽力删除远端残留视频.
func (c *Client) ProcessVideo(ctx context.Context, file *types.FileInput) (*types.VideoResult, error) {
	du, err := c.CreateDirectUpload(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("uid", du.UID).Str("filename", file.Filename).Msg("uploading video")

	if err := c.UploadFile(ctx, du.UploadURL, file); err != nil {
		c.discard(ctx, du.UID)
		return nil, err
	}

	if err := c.WaitForReady(ctx, du.UID); err != nil {
		c.discard(ctx, du.UID)
		return nil, err
	}

	info, err := c.GetVideo(ctx, du.UID)
	if err != nil {
		return nil, err
	}

	return &types.VideoResult{
		UID:             du.UID,
		ManifestURL:     c.manifestURL(du.UID, info),
		DurationSeconds: info.durationSeconds(),
	}, nil
}

// discard 尽力删除未完成的远端视频，不受请求取消影响.
func (c *Client) discard(ctx context.Context, uid string) {
	const discardTimeout = 10 * time.Second

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if err := c.DeleteVideo(dctx, uid); err != nil {
		c.logger.Warn().Err(err).Str("uid", uid).Msg("discard unfinished video failed")
	}
}
