package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/queue"
)

// EventPublisher 发布素材领域事件.
type EventPublisher interface {
	AssetStored(ctx context.Context, payload queue.AssetStoredPayload) error
	AssetDeleted(ctx context.Context, payload queue.AssetDeletedPayload) error
}

type nopPublisher struct{}

func (nopPublisher) AssetStored(context.Context, queue.AssetStoredPayload) error { return nil }

func (nopPublisher) AssetDeleted(context.Context, queue.AssetDeletedPayload) error { return nil }

// mqPublisher 通过消息队列发布事件，按配置开关逐个主题过滤.
type mqPublisher struct {
	pub message.Publisher
	cfg configs.EventsConfig
}

// NewEventPublisher 创建基于消息队列的事件发布器，pub 为空或总开关关闭时不发布.
func NewEventPublisher(pub message.Publisher, cfg configs.EventsConfig) EventPublisher {
	if pub == nil || !cfg.Enabled {
		return nopPublisher{}
	}

	return &mqPublisher{pub: pub, cfg: cfg}
}

func (p *mqPublisher) AssetStored(ctx context.Context, payload queue.AssetStoredPayload) error {
	if !p.cfg.Asset.Stored {
		return nil
	}

	return queue.PublishAssetStored(p.pub, payload, headerOpts(ctx)...)
}

func (p *mqPublisher) AssetDeleted(ctx context.Context, payload queue.AssetDeletedPayload) error {
	if !p.cfg.Asset.Deleted {
		return nil
	}

	return queue.PublishAssetDeleted(p.pub, payload, headerOpts(ctx)...)
}

func headerOpts(ctx context.Context) []func(*queue.EventHeader) {
	opts := []func(*queue.EventHeader){queue.WithProducer(configs.AppName)}

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, queue.WithTraceID(sc.TraceID().String()))
	}

	return opts
}
