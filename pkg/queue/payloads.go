package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// AssetRef 标识一个素材及其远端位置.
type AssetRef struct {
	AssetID   string `json:"asset_id"`
	UserID    string `json:"user_id"`
	AssetType string `json:"asset_type"`
	FileURL   string `json:"file_url,omitempty"`
	RemoteID  string `json:"remote_id,omitempty"` // 视频的远端处理 ID
}

// AssetStoredPayload 素材上传完成.
type AssetStoredPayload struct {
	Asset    AssetRef `json:"asset"`
	Filename string   `json:"filename"`
	SizeMB   float64  `json:"size_mb"`
}

// AssetDeletedPayload 素材已删除，CleanupID 指向待清理记录.
type AssetDeletedPayload struct {
	Asset     AssetRef `json:"asset"`
	CleanupID string   `json:"cleanup_id"`
	Cleaned   bool     `json:"cleaned"` // 同步删除是否已成功
}
