// Package storage 聚合数据库、对象存储、键值存储、消息队列与远端视频服务客户端.
//
// Example:
//
// 初始化
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//		// 处理错误
//	}
//
// 获取存储客户端
//
//	s3Client := mgr.GetS3Client()
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/clipstudio/pkg/configs"
	dbc "github.com/yeisme/clipstudio/pkg/internal/storage/db"
	kvc "github.com/yeisme/clipstudio/pkg/internal/storage/kv"
	mqc "github.com/yeisme/clipstudio/pkg/internal/storage/mq"
	s3c "github.com/yeisme/clipstudio/pkg/internal/storage/s3"
	"github.com/yeisme/clipstudio/pkg/internal/stream"
	nlog "github.com/yeisme/clipstudio/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	S3     *s3c.Client
	DB     *dbc.Client
	KV     *kvc.Client
	MQ     *mqc.Client
	Stream *stream.Client
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		cfg := configs.GetConfig()
		m := &Manager{Stream: stream.New(&cfg.Stream)}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			dbi, err := dbc.New(gctx, &cfg.DB)
			if err != nil {
				return fmt.Errorf("db: %w", err)
			}

			m.DB = dbi

			return nil
		})

		g.Go(func() error {
			s3i, err := s3c.New(gctx, &cfg.S3)
			if err != nil {
				return fmt.Errorf("s3: %w", err)
			}

			m.S3 = s3i

			return nil
		})

		g.Go(func() error {
			kvi, err := kvc.New(gctx)
			if err != nil {
				return fmt.Errorf("kv: %w", err)
			}

			m.KV = kvi

			return nil
		})

		// MQ 的路由器生命周期跟随进程，不使用 errgroup 派生的上下文
		g.Go(func() error {
			mqi, err := mqc.New(ctx)
			if err != nil {
				return fmt.Errorf("mq: %w", err)
			}

			m.MQ = mqi

			return nil
		})

		if err := g.Wait(); err != nil {
			mgrErr = multierr.Append(err, m.Close())

			return
		}

		mgr = m

		nlog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, mgrErr
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetStreamClient 获取远端视频服务客户端.
func (m *Manager) GetStreamClient() *stream.Client {
	return m.Stream
}

// Close 关闭所有已建立的连接.
func (m *Manager) Close() error {
	var err error

	if m.MQ != nil {
		err = multierr.Append(err, m.MQ.Close())
	}

	if m.KV != nil {
		err = multierr.Append(err, m.KV.Close())
	}

	if m.DB != nil {
		err = multierr.Append(err, m.DB.Close())
	}

	if m.S3 != nil {
		err = multierr.Append(err, m.S3.Close())
	}

	return err
}
