// Package mq 提供基于 Watermill 库的统一消息队列操作接口.
// 支持发布/订阅模式，并通过工厂模式抽象不同的 MQ 实现.
//
// 支持的 MQ 类型：
//   - NATS（支持 JetStream）
//   - Redis Pub/Sub
//   - GoChannel（进程内，单实例部署与测试）
//
// 使用示例：
//
//	client, err := mq.New(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	msg := message.NewMessage(watermill.NewUUID(), []byte("hello"))
//	err = client.Publish(ctx, "clip.asset.deleted", msg)
//
//	client.AddHandler("cleanup", "clip.asset.deleted", func(msg *message.Message) error {
//		return nil
//	})
//	go client.RunRouter(ctx)
package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/yeisme/clipstudio/pkg/configs"
	nlog "github.com/yeisme/clipstudio/pkg/log"
	nmetrics "github.com/yeisme/clipstudio/pkg/metrics"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredTypes 返回已注册的 MQ 类型.
func GetRegisteredTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	return types
}

// Client 封装 watermill Publisher、Subscriber 与消费路由.
type Client struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	mqType     configs.MQType

	handlers int
	mu       sync.Mutex
}

// Publish 便捷发布.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	return c.publisher.Publish(topic, msgs...)
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// Publisher 返回底层 Publisher.
func (c *Client) Publisher() message.Publisher {
	return c.publisher
}

// Type 返回当前 MQ 实现类型.
func (c *Client) Type() configs.MQType {
	return c.mqType
}

// AddHandler 注册一个只消费不转发的处理器，需在 RunRouter 之前调用.
func (c *Client) AddHandler(name, topic string, h message.NoPublishHandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.router.AddNoPublisherHandler(name, topic, c.subscriber, h)
	c.handlers++
}

// RunRouter 运行消费路由直到 ctx 取消，未注册处理器时直接返回.
func (c *Client) RunRouter(ctx context.Context) error {
	c.mu.Lock()
	n := c.handlers
	c.mu.Unlock()

	if n == 0 {
		return nil
	}

	return c.router.Run(ctx)
}

// Running 在路由开始运行后关闭.
func (c *Client) Running() chan struct{} {
	return c.router.Running()
}

// Close 关闭资源.
func (c *Client) Close() error {
	var err error

	if c.router != nil && c.router.IsRunning() {
		if e := c.router.Close(); e != nil {
			err = e
		}
	}

	if c.publisher != nil {
		if e := c.publisher.Close(); e != nil {
			err = e
		}
	}

	if c.subscriber != nil {
		if e := c.subscriber.Close(); e != nil {
			err = e
		}
	}

	return err
}

// NewClient 按配置创建客户端，不使用单例，供测试与子命令使用.
func NewClient(ctx context.Context, cfg *configs.MQConfig) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLoggerAdapter(nlog.Logger())

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	const (
		retryMax      = 3
		retryInterval = 500 * time.Millisecond
	)

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      retryMax,
			InitialInterval: retryInterval,
			Logger:          logger,
		}.Middleware,
	)

	if cfg.Common.EnableMetrics {
		builder := metrics.NewPrometheusMetricsBuilder(nmetrics.GetRegistry(), configs.AppName, "mq")
		builder.AddPrometheusRouterMetrics(router)

		if pub, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}

		nlog.Logger().Info().Msg("MQ metrics enabled")
	}

	return &Client{publisher: pub, subscriber: sub, router: router, mqType: cfg.Type}, nil
}

var (
	mqOnce sync.Once
	mqInst *Client
	mqErr  error
)

// New 按全局配置初始化消息队列（单例）.
func New(ctx context.Context) (*Client, error) {
	mqOnce.Do(func() {
		cfg := configs.GetConfig().MQ

		mqInst, mqErr = NewClient(ctx, &cfg)
		if mqErr == nil {
			nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("MQ 管理器已初始化")
		}
	})

	return mqInst, mqErr
}
