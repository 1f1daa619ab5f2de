// Package cache 提供基于键值存储的泛型缓存实现.
//
// 底层使用 sonic 做 JSON 编解码，支持 TTL.等级上限与响应缓存都走这里.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore)
//
//	tier, err := cache.GetOrSet(ctx, c, "tier:0", func() (model.StorageTier, error) {
//	    return loadTier(ctx, 0)
//	}, time.Minute)
//
// 缓存未命中通过 IsMiss 判断；编解码错误与后端错误原样返回.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/clipstudio/pkg/internal/storage/kv"
	nlog "github.com/yeisme/clipstudio/pkg/log"
)

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
}

// Option 缓存选项.
type Option func(*Cache)

// WithPrefix 为所有键加上命名空间前缀.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore, opts ...Option) *Cache {
	c := &Cache{kvStore: kvStore}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsMiss 判断错误是否为缓存未命中.
func IsMiss(err error) bool {
	return errors.Is(err, kv.ErrKeyNotFound)
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var value T

	data, err := c.kvStore.Get(ctx, c.key(key))
	if err != nil {
		return value, err
	}

	if err := sonic.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, c.key(key))
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.key(key))
}

// GetOrSet 获取缓存值，未命中或缓存不可用时调用 getter 并回填.
// 缓存本身的故障只记录日志，不影响返回 getter 的结果.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	value, err := Get[T](ctx, c, key)
	if err == nil {
		return value, nil
	}

	if !IsMiss(err) {
		nlog.Logger().Warn().Err(err).Str("key", c.key(key)).Msg("cache read failed")
	}

	value, err = getter()
	if err != nil {
		return value, err
	}

	if setErr := Set(ctx, c, key, value, ttl); setErr != nil {
		nlog.Logger().Warn().Err(setErr).Str("key", c.key(key)).Msg("cache write failed")
	}

	return value, nil
}

// Clear 删除当前前缀下的所有键.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.kvStore.Keys(ctx, c.prefix+"*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}
