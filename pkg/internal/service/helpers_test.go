package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/model"
	"github.com/yeisme/clipstudio/pkg/internal/service"
	dbc "github.com/yeisme/clipstudio/pkg/internal/storage/db"
	"github.com/yeisme/clipstudio/pkg/internal/storage/s3"
	"github.com/yeisme/clipstudio/pkg/internal/types"
	"github.com/yeisme/clipstudio/pkg/queue"
)

const blobBase = "http://blob.test"

// fakeBlobs 记录写入与删除的对象存储.
type fakeBlobs struct {
	mu        sync.Mutex
	stored    []string
	deleted   []string
	storeErr  error
	deleteErr error
}

func (f *fakeBlobs) Store(_ context.Context, bucket, ownerID string, file *types.FileInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.storeErr != nil {
		return "", f.storeErr
	}

	_, _ = io.Copy(io.Discard, file.Body)

	path := s3.ObjectPath(ownerID, file.Filename, time.Now())
	f.stored = append(f.stored, bucket+"/"+path)

	return s3.PublicURL(blobBase, bucket, path), nil
}

func (f *fakeBlobs) Delete(_ context.Context, bucket, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}

	f.deleted = append(f.deleted, bucket+"/"+path)

	return nil
}

// fakeVideos 模拟远端视频服务.
type fakeVideos struct {
	mu        sync.Mutex
	result    *types.VideoResult
	err       error
	deleteErr error
	deleted   []string
}

func (f *fakeVideos) ProcessVideo(_ context.Context, _ *types.FileInput) (*types.VideoResult, error) {
	if f.err != nil {
		return nil, f.err
	}

	res := *f.result

	return &res, nil
}

func (f *fakeVideos) DeleteVideo(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}

	f.deleted = append(f.deleted, uid)

	return nil
}

// recordingEvents 记录发布的事件.
type recordingEvents struct {
	mu      sync.Mutex
	stored  []queue.AssetStoredPayload
	deleted []queue.AssetDeletedPayload
}

func (r *recordingEvents) AssetStored(_ context.Context, p queue.AssetStoredPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stored = append(r.stored, p)

	return nil
}

func (r *recordingEvents) AssetDeleted(_ context.Context, p queue.AssetDeletedPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleted = append(r.deleted, p)

	return nil
}

// env 一个测试用的完整依赖集.
type env struct {
	db     *gorm.DB
	blobs  *fakeBlobs
	videos *fakeVideos
	events *recordingEvents
	cfg    *configs.AppConfig
}

func (e *env) deps() service.Deps {
	return service.Deps{
		DB:     e.db,
		Blobs:  e.blobs,
		Videos: e.videos,
		Events: e.events,
		Config: e.cfg,
	}
}

func newEnv(t *testing.T) *env {
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

	return &env{
		db:    gdb,
		blobs: &fakeBlobs{},
		videos: &fakeVideos{result: &types.VideoResult{
			UID:             "vid-1",
			ManifestURL:     "https://cdn.test/vid-1/manifest/video.m3u8",
			DurationSeconds: 12,
		}},
		events: &recordingEvents{},
		cfg:    &cfg,
	}
}

// seedAsset 直接写入一条素材记录.
func (e *env) seedAsset(t *testing.T, userID string, kind model.AssetType, sizeMB float64, at time.Time) *model.Asset {
	t.Helper()

	a := &model.Asset{
		UserID:     userID,
		AssetType:  kind,
		Filename:   string(kind) + ".bin",
		FileSizeMB: sizeMB,
		UploadedAt: at,
	}

	switch kind {
	case model.AssetVideo:
		uid := "uid-" + at.Format("150405.000")
		a.CloudflareUID = &uid
		a.FileURL = "https://cdn.test/" + uid + "/manifest/video.m3u8"
	case model.AssetImage:
		a.FileURL = blobBase + "/user-images/" + userID + "/1.png"
	case model.AssetAudio:
		a.FileURL = blobBase + "/user-audio/" + userID + "/1.mp3"
	}

	if err := e.db.Create(a).Error; err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	return a
}

func fileOf(name, content string) *types.FileInput {
	return &types.FileInput{
		Filename:    name,
		ContentType: "application/octet-stream",
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	}
}

var errRemoteDown = errors.New("remote unavailable")
