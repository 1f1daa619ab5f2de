package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/alicebob/miniredis/v2"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/storage/mq"
)

func newClient(t *testing.T, cfg *configs.MQConfig) *mq.Client {
	t.Helper()

	client, err := mq.NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("create mq client: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}

// TestGoChannel_PublishSubscribe 测试进程内消息队列的收发.
func TestGoChannel_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := newClient(t, &configs.MQConfig{
		Type:      configs.MQTypeGoChannel,
		GoChannel: configs.MQGoChannelConfig{BufferSize: 8},
	})

	ch, err := client.Subscribe(ctx, "clip.test")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := client.Publish(ctx, "clip.test", message.NewMessage(watermill.NewUUID(), []byte("hello"))); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-ch:
		if string(msg.Payload) != "hello" {
			t.Errorf("Expected payload hello, got %q", msg.Payload)
		}

		msg.Ack()
	case <-ctx.Done():
		t.Fatal("Expected a message before timeout")
	}
}

// TestGoChannel_Router 测试处理器注册与路由消费.
func TestGoChannel_Router(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := newClient(t, &configs.MQConfig{Type: configs.MQTypeGoChannel})

	got := make(chan string, 1)

	client.AddHandler("test-handler", "clip.router", func(msg *message.Message) error {
		got <- string(msg.Payload)
		return nil
	})

	go func() { _ = client.RunRouter(ctx) }()

	<-client.Running()

	if err := client.Publish(ctx, "clip.router", message.NewMessage(watermill.NewUUID(), []byte("routed"))); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case v := <-got:
		if v != "routed" {
			t.Errorf("Expected routed, got %q", v)
		}
	case <-ctx.Done():
		t.Fatal("Expected handler to be invoked")
	}
}

// TestRedis_PublishSubscribe 使用 miniredis 测试 Redis Pub/Sub 实现.
func TestRedis_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := newClient(t, &configs.MQConfig{
		Type:  configs.MQTypeRedis,
		Redis: configs.MQRedisConfig{Addr: mr.Addr()},
	})

	ch, err := client.Subscribe(ctx, "clip.redis")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// 等待订阅在服务端生效
	deadline := time.Now().Add(2 * time.Second)
	for len(mr.PubSubChannels("clip.redis")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := client.Publish(ctx, "clip.redis", message.NewMessage(watermill.NewUUID(), []byte("via-redis"))); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-ch:
		if string(msg.Payload) != "via-redis" {
			t.Errorf("Expected via-redis, got %q", msg.Payload)
		}

		msg.Ack()
	case <-ctx.Done():
		t.Fatal("Expected a message before timeout")
	}
}

// TestNewClient_Unsupported 测试未注册类型.
func TestNewClient_Unsupported(t *testing.T) {
	if _, err := mq.NewClient(context.Background(), &configs.MQConfig{Type: "kafka"}); err == nil {
		t.Error("Expected error for unsupported mq type")
	}
}
