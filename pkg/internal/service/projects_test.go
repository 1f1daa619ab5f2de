package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/clipstudio/pkg/errs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/service"
)

// TestProjectCreate_Validation 测试项目名称与画幅校验.
func TestProjectCreate_Validation(t *testing.T) {
	e := newEnv(t)
	svc := service.NewProjectService(e.deps())

	cases := []struct {
		name, ratio, wantMsg string
	}{
		{"  ", "16:9", "Project name is required"},
		{"demo", "21:9", "Invalid aspect ratio"},
	}

	for _, tc := range cases {
		_, err := svc.Create(context.Background(), "u1", tc.name, tc.ratio)
		if errs.CodeOf(err) != errs.CodeInvalidInput || errs.From(err).Message() != tc.wantMsg {
			t.Errorf("Expected %q, got %v", tc.wantMsg, err)
		}
	}

	p, err := svc.Create(context.Background(), "u1", " demo ", "9:16")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if p.ID == "" || p.Name != "demo" || p.AspectRatio != model.AspectPortrait {
		t.Errorf("Unexpected project %+v", p)
	}
}

// TestProjectListGet 测试列表只包含本人项目且按创建时间倒序.
func TestProjectListGet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := service.NewProjectService(e.deps())

	first, _ := svc.Create(ctx, "u1", "first", "16:9")
	time.Sleep(5 * time.Millisecond)
	second, _ := svc.Create(ctx, "u1", "second", "1:1")
	_, _ = svc.Create(ctx, "u2", "other", "4:3")

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("Expected [second first], got %+v", list)
	}

	if _, err := svc.Get(ctx, "u2", first.ID); errs.CodeOf(err) != errs.CodeNotFound {
		t.Errorf("Expected not found for foreign project, got %v", err)
	}
}

// TestProjectDelete 测试删除项目时级联删除槽位条目.
func TestProjectDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	video := e.seedAsset(t, "u1", model.AssetVideo, 1, time.Now())
	projects := service.NewProjectService(e.deps())
	comp := service.NewCompositionService(e.deps())

	p, err := projects.Create(ctx, "u1", "demo", "16:9")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := comp.Add(ctx, "u1", p.ID, "base", video.ID); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := projects.Delete(ctx, "u2", p.ID); errs.CodeOf(err) != errs.CodeNotFound {
		t.Errorf("Expected not found for foreign delete, got %v", err)
	}

	if err := projects.Delete(ctx, "u1", p.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var n int64
	e.db.Model(&model.BaseClip{}).Where("project_id = ?", p.ID).Count(&n)

	if n != 0 {
		t.Errorf("Expected slot entries removed, got %d", n)
	}

	if countAssets(t, e) != 1 {
		t.Error("Expected assets to be kept")
	}
}
