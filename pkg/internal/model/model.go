// Package model 定义持久化模型.
package model

// AllModels 返回需要迁移的全部模型.
func AllModels() []any {
	return []any{
		&StorageTier{},
		&Asset{},
		&Project{},
		&BaseClip{},
		&ClipperClip{},
		&BGMTrack{},
		&PendingCleanup{},
	}
}
