package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/clipstudio/pkg/errs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/service"
)

func cleanupFor(t *testing.T, e *env, assetID string) model.PendingCleanup {
	t.Helper()

	var c model.PendingCleanup
	if err := e.db.Where("asset_id = ?", assetID).Take(&c).Error; err != nil {
		t.Fatalf("load cleanup: %v", err)
	}

	return c
}

// TestAssetList 测试按时间倒序列出并按类型过滤.
func TestAssetList(t *testing.T) {
	e := newEnv(t)
	now := time.Now()

	old := e.seedAsset(t, "u1", model.AssetImage, 1, now.Add(-time.Hour))
	recent := e.seedAsset(t, "u1", model.AssetVideo, 2, now)
	e.seedAsset(t, "u2", model.AssetImage, 3, now)

	svc := service.NewAssetService(e.deps())

	all, err := svc.List(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(all) != 2 || all[0].ID != recent.ID || all[1].ID != old.ID {
		t.Errorf("Expected [%s %s], got %+v", recent.ID, old.ID, all)
	}

	images, err := svc.List(context.Background(), "u1", "image")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(images) != 1 || images[0].ID != old.ID {
		t.Errorf("Expected only %s, got %+v", old.ID, images)
	}

	if _, err := svc.List(context.Background(), "u1", "gif"); errs.CodeOf(err) != errs.CodeInvalidInput {
		t.Errorf("Expected invalid input, got %v", err)
	}

	none, err := svc.List(context.Background(), "nobody", "")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("Expected empty non-nil list, got %v (%v)", none, err)
	}
}

// TestAssetDelete_NotFound 测试删除他人或不存在的素材.
func TestAssetDelete_NotFound(t *testing.T) {
	e := newEnv(t)
	other := e.seedAsset(t, "u2", model.AssetImage, 1, time.Now())

	svc := service.NewAssetService(e.deps())

	for _, id := range []string{"missing", other.ID} {
		err := svc.Delete(context.Background(), "u1", id)
		if errs.CodeOf(err) != errs.CodeNotFound || errs.From(err).Message() != "Asset not found" {
			t.Errorf("Expected Asset not found for %s, got %v", id, err)
		}
	}

	if countAssets(t, e) != 1 {
		t.Error("Expected asset of another user to remain")
	}
}

// TestAssetDelete_Image 测试图片删除后对象存储被同步清理.
func TestAssetDelete_Image(t *testing.T) {
	e := newEnv(t)
	a := e.seedAsset(t, "u1", model.AssetImage, 1, time.Now())

	if err := service.NewAssetService(e.deps()).Delete(context.Background(), "u1", a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(e.blobs.deleted) != 1 || e.blobs.deleted[0] != "user-images/u1/1.png" {
		t.Errorf("Expected user-images/u1/1.png deleted, got %v", e.blobs.deleted)
	}

	if c := cleanupFor(t, e, a.ID); c.Status != model.CleanupDone {
		t.Errorf("Expected cleanup done, got %s", c.Status)
	}

	if len(e.events.deleted) != 1 || !e.events.deleted[0].Cleaned {
		t.Errorf("Expected one cleaned delete event, got %+v", e.events.deleted)
	}

	if countAssets(t, e) != 0 {
		t.Error("Expected asset row removed")
	}
}

// TestAssetDelete_RemoteFailure 测试远端删除失败时请求仍成功并留待重试.
func TestAssetDelete_RemoteFailure(t *testing.T) {
	e := newEnv(t)
	e.videos.deleteErr = errRemoteDown
	a := e.seedAsset(t, "u1", model.AssetVideo, 5, time.Now())

	if err := service.NewAssetService(e.deps()).Delete(context.Background(), "u1", a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	c := cleanupFor(t, e, a.ID)
	if c.Status != model.CleanupPending || c.Attempts != 1 || c.RemoteID != *a.CloudflareUID {
		t.Fatalf("Expected pending cleanup with one attempt, got %+v", c)
	}

	if c.LastError != errRemoteDown.Error() {
		t.Errorf("Expected last error recorded, got %q", c.LastError)
	}

	if !c.NextAttemptAt.After(time.Now()) {
		t.Errorf("Expected next attempt in the future, got %v", c.NextAttemptAt)
	}

	if len(e.events.deleted) != 1 || e.events.deleted[0].Cleaned || e.events.deleted[0].CleanupID != c.ID {
		t.Errorf("Expected uncleaned delete event for %s, got %+v", c.ID, e.events.deleted)
	}

	// 远端恢复后由定时任务完成清理
	e.videos.deleteErr = nil
	cleanup := service.NewCleanupService(e.deps())

	if n, err := cleanup.RunDue(context.Background(), 10); err != nil || n != 0 {
		t.Fatalf("Expected nothing due yet, got %d (%v)", n, err)
	}

	past := time.Now().UTC().Add(-time.Minute)
	if err := e.db.Model(&model.PendingCleanup{}).Where("id = ?", c.ID).Update("next_attempt_at", past).Error; err != nil {
		t.Fatalf("rewind cleanup: %v", err)
	}

	if n, err := cleanup.RunDue(context.Background(), 10); err != nil || n != 1 {
		t.Fatalf("Expected one processed, got %d (%v)", n, err)
	}

	if c := cleanupFor(t, e, a.ID); c.Status != model.CleanupDone {
		t.Errorf("Expected cleanup done, got %+v", c)
	}

	if len(e.videos.deleted) != 1 || e.videos.deleted[0] != *a.CloudflareUID {
		t.Errorf("Expected remote video deleted, got %v", e.videos.deleted)
	}
}

// TestAssetDelete_NoObjectPath 测试 URL 中找不到桶时直接结束清理.
func TestAssetDelete_NoObjectPath(t *testing.T) {
	e := newEnv(t)
	a := e.seedAsset(t, "u1", model.AssetAudio, 1, time.Now())

	if err := e.db.Model(a).Update("file_url", "https://elsewhere.test/song.mp3").Error; err != nil {
		t.Fatalf("update url: %v", err)
	}

	if err := service.NewAssetService(e.deps()).Delete(context.Background(), "u1", a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	c := cleanupFor(t, e, a.ID)
	if c.Status != model.CleanupDone || c.LastError == "" {
		t.Errorf("Expected done cleanup with a note, got %+v", c)
	}

	if len(e.blobs.deleted) != 0 {
		t.Errorf("Expected no blob delete, got %v", e.blobs.deleted)
	}
}

// TestAssetDelete_DetachesFromProjects 测试删除素材时移出槽位并保持编号连续.
func TestAssetDelete_DetachesFromProjects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := time.Now()

	v1 := e.seedAsset(t, "u1", model.AssetVideo, 1, now)
	v2 := e.seedAsset(t, "u1", model.AssetVideo, 1, now.Add(time.Second))
	v3 := e.seedAsset(t, "u1", model.AssetVideo, 1, now.Add(2*time.Second))
	song := e.seedAsset(t, "u1", model.AssetAudio, 1, now)

	project, err := service.NewProjectService(e.deps()).Create(ctx, "u1", "trip", "16:9")
	if err != nil {
		t.Fatalf("Create project failed: %v", err)
	}

	comp := service.NewCompositionService(e.deps())
	for _, id := range []string{v1.ID, v2.ID, v2.ID, v3.ID} {
		if _, err := comp.Add(ctx, "u1", project.ID, "base", id); err != nil {
			t.Fatalf("Add base failed: %v", err)
		}
	}

	if _, err := comp.Add(ctx, "u1", project.ID, "bgm", song.ID); err != nil {
		t.Fatalf("Add bgm failed: %v", err)
	}

	assets := service.NewAssetService(e.deps())
	if err := assets.Delete(ctx, "u1", v2.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if err := assets.Delete(ctx, "u1", song.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	slots, err := comp.Slots(ctx, "u1", project.ID)
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}

	if len(slots.Base) != 2 {
		t.Fatalf("Expected 2 base entries, got %+v", slots.Base)
	}

	for i, want := range []string{v1.ID, v3.ID} {
		if slots.Base[i].AssetID != want || slots.Base[i].Position != i {
			t.Errorf("Expected %s at %d, got %+v", want, i, slots.Base[i])
		}
	}

	if slots.BGM != nil {
		t.Errorf("Expected bgm cleared, got %+v", slots.BGM)
	}
}
