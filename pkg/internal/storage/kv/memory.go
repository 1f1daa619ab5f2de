package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yeisme/clipstudio/pkg/configs"
)

const defaultMemorySize = 1024

// MemoryKV 基于容量受限的 LRU 的进程内 KV.
// 整体过期由 LRU 的 DefaultTTL 控制，单键 TTL 通过 ttl 包装实现.
type MemoryKV struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryKV 创建内存 KV 实例，config 可为 nil.
func NewMemoryKV(_ context.Context, config any) (KVStore, error) {
	size := defaultMemorySize

	var ttl time.Duration

	if config != nil {
		memCfg, ok := config.(*configs.MemoryKVConfig)
		if !ok {
			return nil, fmt.Errorf("invalid memory kv config")
		}

		if memCfg.Size > 0 {
			size = memCfg.Size
		}

		ttl = memCfg.DefaultTTL
	}

	return &MemoryKV{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}, nil
}

// Get 获取键的值.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	raw, ok := m.lru.Get(key)
	if !ok {
		return nil, notFound(key)
	}

	val, expired, err := decodeWithTTL(raw, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		m.lru.Remove(key)
		return nil, notFound(key)
	}

	out := make([]byte, len(val))
	copy(out, val)

	return out, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	encoded, err := encodeWithTTL(data, ttl)
	if err != nil {
		return err
	}

	m.lru.Add(key, encoded)

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := m.Get(ctx, key); err != nil {
		return false, nil
	}

	return true, nil
}

// Keys 获取所有匹配的键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0, m.lru.Len())

	now := time.Now()

	for _, k := range m.lru.Keys() {
		if !matchPattern(pattern, k) {
			continue
		}

		raw, ok := m.lru.Peek(k)
		if !ok {
			continue
		}

		if _, expired, err := decodeWithTTL(raw, now); err == nil && expired {
			m.lru.Remove(k)
			continue
		}

		keys = append(keys, k)
	}

	return keys, nil
}

// Close 清空数据.
func (m *MemoryKV) Close() error {
	m.lru.Purge()
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
