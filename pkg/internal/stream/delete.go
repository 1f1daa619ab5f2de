package stream

import (
	"context"
	"fmt"
	"net/http"
)

// DeleteVideo 删除远端视频，404 视为已删除.
func (c *Client) DeleteVideo(ctx context.Context, uid string) error {
	resp, err := c.callAPI(ctx, http.MethodDelete, c.accountURL(uid), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", OpDeleteVideo, err)
	}

	if resp.status == http.StatusNotFound || resp.ok() {
		return nil
	}

	return resp.failure(OpDeleteVideo)
}
