package queue

import "github.com/ThreeDotsLabs/watermill/message"

// PublishAssetStored 发布 clip.asset.stored 事件.
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息.
func PublishAssetStored(pub message.Publisher, payload AssetStoredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetStored, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetStored, msg)
}

// PublishAssetDeleted 发布 clip.asset.deleted 事件.
func PublishAssetDeleted(pub message.Publisher, payload AssetDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetDeleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetDeleted, msg)
}

// ParseAssetStored 将 Watermill 消息解析为强类型 Envelope.
func ParseAssetStored(msg *message.Message) (Message[AssetStoredPayload], error) {
	return ParseWatermillMessage[AssetStoredPayload](msg)
}

// ParseAssetDeleted 将 Watermill 消息解析为强类型 Envelope.
func ParseAssetDeleted(msg *message.Message) (Message[AssetDeletedPayload], error) {
	return ParseWatermillMessage[AssetDeletedPayload](msg)
}
