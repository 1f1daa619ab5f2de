package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteProcessingFailed 远端报告处理失败.
	ErrRemoteProcessingFailed = errors.New("Video processing failed") //nolint:staticcheck
	// ErrRemoteProcessingTimeout 等待远端处理超时.
	ErrRemoteProcessingTimeout = errors.New("Video processing timeout") //nolint:staticcheck
)

// RemoteRequestFailed 远端接口返回非 2xx.
type RemoteRequestFailed struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteRequestFailed) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("Failed to %s: %d", e.Op, e.StatusCode)
	}

	return fmt.Sprintf("Failed to %s: %d - %s", e.Op, e.StatusCode, e.Body)
}

// 操作名，出现在 RemoteRequestFailed.Op 中.
const (
	OpCreateUpload = "create upload URL"
	OpUpload       = "upload video"
	OpGetVideo     = "get video info"
	OpDeleteVideo  = "delete video"
)

// serverStatusError 让熔断器把 5xx 计为失败，同时保留响应.
type serverStatusError struct {
	resp *apiResponse
}

func (e *serverStatusError) Error() string {
	return fmt.Sprintf("remote returned %d", e.resp.status)
}
