package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/service"
	"github.com/yeisme/clipstudio/pkg/queue"
)

func seedCleanup(t *testing.T, e *env, c *model.PendingCleanup) *model.PendingCleanup {
	t.Helper()

	if err := e.db.Create(c).Error; err != nil {
		t.Fatalf("seed cleanup: %v", err)
	}

	return c
}

// TestCleanupAttempt_Backoff 测试失败后按指数退避推迟.
func TestCleanupAttempt_Backoff(t *testing.T) {
	e := newEnv(t)
	e.cfg.Jobs.CleanupBackoffBase = time.Second
	e.cfg.Jobs.CleanupBackoffMax = 3 * time.Second
	e.blobs.deleteErr = errRemoteDown

	c := seedCleanup(t, e, &model.PendingCleanup{
		AssetID: "a1", UserID: "u1", Kind: model.AssetImage, Bucket: "user-images", ObjectPath: "u1/1.png",
	})

	svc := service.NewCleanupService(e.deps())

	for i, want := range []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second} {
		before := time.Now().UTC()

		if err := svc.Attempt(context.Background(), c); err == nil {
			t.Fatalf("Expected remote error on attempt %d", i+1)
		}

		if c.Attempts != i+1 || c.Status != model.CleanupPending {
			t.Fatalf("Expected pending with %d attempts, got %+v", i+1, c)
		}

		delay := c.NextAttemptAt.Sub(before)
		if delay < want || delay > want+time.Second {
			t.Errorf("Attempt %d: expected delay about %v, got %v", i+1, want, delay)
		}
	}
}

// TestCleanupAttempt_Abandon 测试达到最大次数后放弃.
func TestCleanupAttempt_Abandon(t *testing.T) {
	e := newEnv(t)
	e.cfg.Jobs.CleanupMaxAttempts = 2
	e.videos.deleteErr = errRemoteDown

	c := seedCleanup(t, e, &model.PendingCleanup{AssetID: "a1", UserID: "u1", Kind: model.AssetVideo, RemoteID: "vid-9"})
	svc := service.NewCleanupService(e.deps())

	_ = svc.Attempt(context.Background(), c)
	_ = svc.Attempt(context.Background(), c)

	var stored model.PendingCleanup
	if err := e.db.Where("id = ?", c.ID).Take(&stored).Error; err != nil {
		t.Fatalf("load cleanup: %v", err)
	}

	if stored.Status != model.CleanupAbandoned || stored.Attempts != 2 {
		t.Errorf("Expected abandoned after 2 attempts, got %+v", stored)
	}

	// 已放弃的记录不再被执行
	if err := svc.RunOne(context.Background(), c.ID); err != nil {
		t.Errorf("Expected RunOne to skip abandoned record, got %v", err)
	}
}

// TestCleanupAttempt_StaleRecord 测试并发已处理的记录不被覆盖.
func TestCleanupAttempt_StaleRecord(t *testing.T) {
	e := newEnv(t)
	e.blobs.deleteErr = errRemoteDown

	c := seedCleanup(t, e, &model.PendingCleanup{
		AssetID: "a1", UserID: "u1", Kind: model.AssetAudio, Bucket: "user-audio", ObjectPath: "u1/1.mp3",
	})

	if err := e.db.Model(&model.PendingCleanup{}).Where("id = ?", c.ID).Update("status", model.CleanupDone).Error; err != nil {
		t.Fatalf("mark done: %v", err)
	}

	_ = service.NewCleanupService(e.deps()).Attempt(context.Background(), c)

	var stored model.PendingCleanup
	if err := e.db.Where("id = ?", c.ID).Take(&stored).Error; err != nil {
		t.Fatalf("load cleanup: %v", err)
	}

	if stored.Status != model.CleanupDone || stored.Attempts != 0 {
		t.Errorf("Expected record untouched, got %+v", stored)
	}
}

// TestHandleDeleted 测试消费删除事件时立即重试未完成的清理.
func TestHandleDeleted(t *testing.T) {
	e := newEnv(t)
	svc := service.NewCleanupService(e.deps())

	c := seedCleanup(t, e, &model.PendingCleanup{
		AssetID: "a1", UserID: "u1", Kind: model.AssetVideo, RemoteID: "vid-7",
		NextAttemptAt: time.Now().UTC().Add(time.Hour),
	})

	msg, err := queue.NewWatermillMessage(queue.TopicAssetDeleted, queue.AssetDeletedPayload{
		Asset:     queue.AssetRef{AssetID: "a1", UserID: "u1", AssetType: "video", RemoteID: "vid-7"},
		CleanupID: c.ID,
	})
	if err != nil {
		t.Fatalf("build message: %v", err)
	}

	if err := svc.HandleDeleted(msg); err != nil {
		t.Fatalf("HandleDeleted returned %v", err)
	}

	if len(e.videos.deleted) != 1 || e.videos.deleted[0] != "vid-7" {
		t.Errorf("Expected vid-7 deleted, got %v", e.videos.deleted)
	}

	// 格式错误的消息被确认丢弃
	if err := svc.HandleDeleted(message.NewMessage("bad", []byte("{"))); err != nil {
		t.Errorf("Expected malformed message to be acked, got %v", err)
	}
}
