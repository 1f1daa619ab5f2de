package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yeisme/clipstudio/pkg/metrics"
)

// 远端处理状态.
const (
	StateReady = "ready"
	StateError = "error"
)

// VideoInfo 远端视频详情.
type VideoInfo struct {
	UID    string `json:"uid"`
	Status struct {
		State         string `json:"state"`
		ErrReasonCode string `json:"errReasonCode"`
		ErrReasonText string `json:"errReasonText"`
	} `json:"status"`
	Playback struct {
		HLS  string `json:"hls"`
		Dash string `json:"dash"`
	} `json:"playback"`
	Duration      *float64 `json:"duration"`
	ReadyToStream bool     `json:"readyToStream"`
}

// durationSeconds 远端未给出或给出负值时为 0.
func (v *VideoInfo) durationSeconds() float64 {
	if v.Duration == nil || *v.Duration < 0 {
		return 0
	}

	return *v.Duration
}

// GetVideo 获取视频详情.
func (c *Client) GetVideo(ctx context.Context, uid string) (*VideoInfo, error) {
	resp, err := c.callAPI(ctx, http.MethodGet, c.accountURL(uid), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpGetVideo, err)
	}

	if !resp.ok() {
		return nil, &RemoteRequestFailed{Op: OpGetVideo, StatusCode: resp.status}
	}

	info, err := decodeResult[VideoInfo](resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpGetVideo, err)
	}

	return &info, nil
}

// WaitForReady 按固定间隔轮询直到 ready 或 error.
// 超过处理时限返回 ErrRemoteProcessingTimeout，ctx 取消时返回 ctx.Err().
func (c *Client) WaitForReady(ctx context.Context, uid string) error {
	deadline := time.NewTimer(c.cfg.GetProcessingTimeout())
	defer deadline.Stop()

	ticker := time.NewTicker(c.cfg.GetPollInterval())
	defer ticker.Stop()

	for {
		info, err := c.GetVideo(ctx, uid)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return err
		}

		state := info.Status.State
		metrics.StreamPolls.WithLabelValues(state).Inc()

		switch state {
		case StateReady:
			return nil
		case StateError:
			c.logger.Warn().Str("uid", uid).Str("reason", info.Status.ErrReasonText).Msg("remote processing failed")
			return ErrRemoteProcessingFailed
		}

		c.logger.Debug().Str("uid", uid).Str("state", state).Msg("video still processing")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrRemoteProcessingTimeout
		case <-ticker.C:
		}
	}
}

// manifestURL 优先使用远端返回的 HLS 地址.
func (c *Client) manifestURL(uid string, info *VideoInfo) string {
	if info.Playback.HLS != "" {
		return info.Playback.HLS
	}

	return fmt.Sprintf("https://customer-%s.cloudflarestream.com/%s/manifest/video.m3u8", c.cfg.AccountID, uid)
}
