// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：clip.<域>.<动作>，尽量稳定且向后兼容.

const (
	// 素材领域.
	TopicAssetStored  = "clip.asset.stored"  // 素材已写入远端存储并落库
	TopicAssetDeleted = "clip.asset.deleted" // 素材记录已删除，远端对象进入清理流程
)

// AssetTopics 素材相关主题集合.
var AssetTopics = []string{TopicAssetStored, TopicAssetDeleted}
