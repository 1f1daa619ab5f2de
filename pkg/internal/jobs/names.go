package jobs

// 任务与消费者名称常量，便于统一管理与引用.
const (
	JobCleanupRetry         = "assets.cleanup.retry"
	ConsumerCleanupFastPath = "assets.cleanup.on_deleted"
)
