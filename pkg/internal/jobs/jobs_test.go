package jobs_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/jobs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/service"
	dbc "github.com/yeisme/clipstudio/pkg/internal/storage/db"
	mqc "github.com/yeisme/clipstudio/pkg/internal/storage/mq"
	"github.com/yeisme/clipstudio/pkg/internal/types"
	"github.com/yeisme/clipstudio/pkg/queue"
	"github.com/yeisme/clipstudio/pkg/scheduler"
)

type memBlobs struct {
	mu      sync.Mutex
	deleted []string
}

func (m *memBlobs) Store(context.Context, string, string, *types.FileInput) (string, error) {
	return "", nil
}

func (m *memBlobs) Delete(_ context.Context, bucket, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleted = append(m.deleted, bucket+"/"+path)

	return nil
}

func (m *memBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.deleted)
}

func setup(t *testing.T) (*gorm.DB, *memBlobs, *service.CleanupService, *configs.AppConfig) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := dbc.Migrate(context.Background(), gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := *configs.LoadDefaults()
	blobs := &memBlobs{}
	cleanup := service.NewCleanupService(service.Deps{DB: gdb, Blobs: blobs, Config: &cfg})

	return gdb, blobs, cleanup, &cfg
}

func seedPending(t *testing.T, gdb *gorm.DB, next time.Time) *model.PendingCleanup {
	t.Helper()

	c := &model.PendingCleanup{
		AssetID: "a1", UserID: "u1", Kind: model.AssetImage,
		Bucket: "user-images", ObjectPath: "u1/1.png", NextAttemptAt: next,
	}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("seed cleanup: %v", err)
	}

	return c
}

// TestRegisterCronJobs 测试清理任务注册到调度器并可立即执行.
func TestRegisterCronJobs(t *testing.T) {
	gdb, blobs, cleanup, cfg := setup(t)
	seedPending(t, gdb, time.Now().UTC().Add(-time.Second))

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	defer sched.Shutdown()

	if err := jobs.RegisterCronJobs(context.Background(), sched, cleanup, cfg.Jobs); err != nil {
		t.Fatalf("RegisterCronJobs failed: %v", err)
	}

	infos := sched.GetJobInfos()
	if len(infos) != 1 || infos[0].Name != jobs.JobCleanupRetry || infos[0].CronExpr != cfg.Jobs.CleanupCron {
		t.Fatalf("Expected cleanup job registered, got %+v", infos)
	}

	sched.Start()

	if err := sched.RunNow(jobs.JobCleanupRetry); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for blobs.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if blobs.count() != 1 {
		t.Errorf("Expected one blob deleted by the job, got %d", blobs.count())
	}
}

// TestRegisterCronJobs_Disabled 测试关闭任务时不注册.
func TestRegisterCronJobs_Disabled(t *testing.T) {
	_, _, cleanup, cfg := setup(t)
	cfg.Jobs.Enabled = false

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	defer sched.Shutdown()

	if err := jobs.RegisterCronJobs(context.Background(), sched, cleanup, cfg.Jobs); err != nil {
		t.Fatalf("RegisterCronJobs failed: %v", err)
	}

	if n := len(sched.GetJobInfos()); n != 0 {
		t.Errorf("Expected no jobs, got %d", n)
	}
}

// TestRegisterConsumers 测试删除事件触发立即重试.
func TestRegisterConsumers(t *testing.T) {
	gdb, blobs, cleanup, cfg := setup(t)
	c := seedPending(t, gdb, time.Now().UTC().Add(time.Hour))

	mq, err := mqc.NewClient(context.Background(), &configs.MQConfig{
		Type:      configs.MQTypeGoChannel,
		GoChannel: configs.MQGoChannelConfig{BufferSize: 16},
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer mq.Close()

	if err := jobs.RegisterConsumers(mq, cleanup, cfg.Jobs); err != nil {
		t.Fatalf("RegisterConsumers failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = mq.RunRouter(ctx) }()
	<-mq.Running()

	err = queue.PublishAssetDeleted(mq.Publisher(), queue.AssetDeletedPayload{
		Asset:     queue.AssetRef{AssetID: "a1", UserID: "u1", AssetType: "image"},
		CleanupID: c.ID,
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for blobs.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	var stored model.PendingCleanup
	if err := gdb.Where("id = ?", c.ID).Take(&stored).Error; err != nil {
		t.Fatalf("load cleanup: %v", err)
	}

	if blobs.count() != 1 || stored.Status != model.CleanupDone {
		t.Errorf("Expected cleanup done via consumer, got %d deletes and %+v", blobs.count(), stored)
	}
}
