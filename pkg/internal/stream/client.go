// Package stream 对接远端视频转码服务：直传上传、状态轮询、获取播放地址与删除.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yeisme/clipstudio/pkg/configs"
	nlog "github.com/yeisme/clipstudio/pkg/log"
)

const (
	maxErrorBody        = 4 << 10
	breakerFailures     = 5
	breakerOpenDuration = 30 * time.Second
)

// Client 远端视频服务客户端.
type Client struct {
	httpClient *http.Client
	cfg        configs.StreamConfig
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

// Option 客户端选项.
type Option func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New 创建客户端.
func New(cfg *configs.StreamConfig, opts ...Option) *Client {
	c := &Client{
		cfg: *cfg,
		httpClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: nlog.Component("stream"),
	}

	if cfg.CircuitBreaker {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "stream",
			Timeout: breakerOpenDuration,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("circuit breaker state changed")
			},
		})
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// envelope 远端 API 的统一响应结构.
type envelope[T any] struct {
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
	Result  T          `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	status int
	body   []byte
}

func (r *apiResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *apiResponse) failure(op string) *RemoteRequestFailed {
	body := r.body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	return &RemoteRequestFailed{Op: op, StatusCode: r.status, Body: strings.TrimSpace(string(body))}
}

func (c *Client) accountURL(parts ...string) string {
	base := strings.TrimRight(c.cfg.APIBase, "/")

	return base + "/accounts/" + c.cfg.AccountID + "/stream/" + strings.Join(parts, "/")
}

// callAPI 发送带 Bearer 认证的请求，经熔断器执行.
func (c *Client) callAPI(ctx context.Context, method, url string, body any) (*apiResponse, error) {
	var reader io.Reader

	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.breaker == nil {
		return c.send(req)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.send(req)
		if err != nil {
			return nil, err
		}

		if resp.status >= http.StatusInternalServerError {
			return nil, &serverStatusError{resp: resp}
		}

		return resp, nil
	})

	var se *serverStatusError
	if errors.As(err, &se) {
		return se.resp, nil
	}

	if err != nil {
		return nil, err
	}

	return out.(*apiResponse), nil
}

func (c *Client) send(req *http.Request) (*apiResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &apiResponse{status: resp.StatusCode, body: data}, nil
}

func decodeResult[T any](resp *apiResponse) (T, error) {
	var env envelope[T]
	if err := sonic.Unmarshal(resp.body, &env); err != nil {
		return env.Result, fmt.Errorf("decode response: %w", err)
	}

	return env.Result, nil
}
