package context_test

import (
	"context"
	"testing"

	ncontext "github.com/yeisme/clipstudio/pkg/context"
	"github.com/yeisme/clipstudio/pkg/internal/storage"
)

// TestUserID 测试用户 ID 的写入与读取.
func TestUserID(t *testing.T) {
	ctx := context.Background()
	if got := ncontext.GetUserID(ctx); got != "" {
		t.Errorf("Expected empty user id, got %q", got)
	}

	ctx = ncontext.WithUserID(ctx, "user-1")
	if got := ncontext.GetUserID(ctx); got != "user-1" {
		t.Errorf("Expected user-1, got %q", got)
	}
}

// TestGetClients_NoManager 测试未注入 Manager 时返回 nil.
func TestGetClients_NoManager(t *testing.T) {
	ctx := context.Background()

	if ncontext.GetDBClient(ctx) != nil || ncontext.GetS3Client(ctx) != nil {
		t.Error("Expected nil clients without manager")
	}

	mgr := &storage.Manager{}
	ctx = ncontext.WithStorageManager(ctx, mgr)

	if ncontext.GetManager(ctx) != mgr {
		t.Error("Expected injected manager")
	}

	if ncontext.GetKVClient(ctx) != nil {
		t.Error("Expected nil KV client on empty manager")
	}
}
