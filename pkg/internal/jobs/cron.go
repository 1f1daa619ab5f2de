// Package jobs 负责注册后台任务：远端对象清理的定时重试与删除事件消费.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/yeisme/clipstudio/pkg/configs"
	"github.com/yeisme/clipstudio/pkg/internal/service"
	mqc "github.com/yeisme/clipstudio/pkg/internal/storage/mq"
	"github.com/yeisme/clipstudio/pkg/log"
	"github.com/yeisme/clipstudio/pkg/queue"
	"github.com/yeisme/clipstudio/pkg/scheduler"
)

// cleanupRunBudget 单次定时任务的执行时限.
const cleanupRunBudget = 5 * time.Minute

// RegisterCronJobs 按 jobs.cleanup_cron 注册清理重试任务.
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, cleanup *service.CleanupService, cfg configs.JobsConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if cleanup == nil {
		return errors.New("cleanup service is nil")
	}

	if !cfg.Enabled {
		return nil
	}

	return sched.AddCron(JobCleanupRetry, cfg.CleanupCron, func(ctx context.Context) error {
		return RunCleanup(ctx, cleanup, cfg.CleanupBatch)
	}, ctx)
}

// RunCleanup 处理一批到期的待清理记录.
func RunCleanup(ctx context.Context, cleanup *service.CleanupService, batch int) error {
	l := log.Component("jobs").With().Str("job", JobCleanupRetry).Logger()

	ctx, cancel := context.WithTimeout(ctx, cleanupRunBudget)
	defer cancel()

	n, err := cleanup.RunDue(ctx, batch)
	if err != nil {
		l.Error().Err(err).Int("processed", n).Msg("cleanup run failed")
		return err
	}

	if n > 0 {
		l.Info().Int("processed", n).Msg("cleanup run done")
	}

	return nil
}

// RegisterConsumers 订阅 clip.asset.deleted，对同步删除未成功的记录立即重试一次.
// 需在 mq.Client.RunRouter 之前调用.
func RegisterConsumers(mq *mqc.Client, cleanup *service.CleanupService, cfg configs.JobsConfig) error {
	if mq == nil {
		return errors.New("mq client is nil")
	}

	if cleanup == nil {
		return errors.New("cleanup service is nil")
	}

	if !cfg.ConsumerEnabled {
		return nil
	}

	mq.AddHandler(ConsumerCleanupFastPath, queue.TopicAssetDeleted, cleanup.HandleDeleted)

	return nil
}
