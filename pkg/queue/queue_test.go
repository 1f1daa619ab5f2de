package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/clipstudio/pkg/queue"
)

// TestNewWatermillMessage_Metadata 测试消息元数据与信封解析.
func TestNewWatermillMessage_Metadata(t *testing.T) {
	payload := queue.AssetStoredPayload{
		Asset:    queue.AssetRef{AssetID: "a1", UserID: "u1", AssetType: "image"},
		Filename: "cat.png",
		SizeMB:   1.5,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicAssetStored, payload,
		queue.WithTraceID("trace-1"), queue.WithProducer("clipstudio"))
	if err != nil {
		t.Fatalf("NewWatermillMessage failed: %v", err)
	}

	if got := msg.Metadata.Get("topic"); got != queue.TopicAssetStored {
		t.Errorf("Expected topic metadata %s, got %s", queue.TopicAssetStored, got)
	}

	if got := msg.Metadata.Get("trace_id"); got != "trace-1" {
		t.Errorf("Expected trace_id trace-1, got %s", got)
	}

	env, err := queue.ParseAssetStored(msg)
	if err != nil {
		t.Fatalf("ParseAssetStored failed: %v", err)
	}

	if env.Header.Version != queue.PayloadVersionV1 {
		t.Errorf("Expected version %s, got %s", queue.PayloadVersionV1, env.Header.Version)
	}

	if env.Payload != payload {
		t.Errorf("Expected payload %+v, got %+v", payload, env.Payload)
	}
}

// TestPublishAssetDeleted 测试通过 gochannel 发布并接收删除事件.
func TestPublishAssetDeleted(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := pubSub.Subscribe(ctx, queue.TopicAssetDeleted)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	payload := queue.AssetDeletedPayload{
		Asset:     queue.AssetRef{AssetID: "a2", UserID: "u1", AssetType: "video", RemoteID: "uid-1"},
		CleanupID: "01HZZZZZZZZZZZZZZZZZZZZZZZ",
	}

	if err := queue.PublishAssetDeleted(pubSub, payload); err != nil {
		t.Fatalf("PublishAssetDeleted failed: %v", err)
	}

	select {
	case msg := <-ch:
		msg.Ack()

		env, err := queue.ParseAssetDeleted(msg)
		if err != nil {
			t.Fatalf("ParseAssetDeleted failed: %v", err)
		}

		if env.Payload.CleanupID != payload.CleanupID {
			t.Errorf("Expected cleanup id %s, got %s", payload.CleanupID, env.Payload.CleanupID)
		}

		if env.Header.Topic != queue.TopicAssetDeleted {
			t.Errorf("Expected header topic %s, got %s", queue.TopicAssetDeleted, env.Header.Topic)
		}
	case <-ctx.Done():
		t.Fatal("Expected a message before timeout")
	}
}
