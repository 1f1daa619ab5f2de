package kv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/clipstudio/pkg/configs"
)

// GroupcacheKV 基于 Groupcache 的 KV 实现.
// groupcache 不支持失效，这里给每个键维护一个版本号，删除或覆盖时递增版本，
// 旧版本在组内的缓存自然不再被命中.
type GroupcacheKV struct {
	cache *groupcache.Group    // Groupcache 缓存组
	peers *groupcache.HTTPPool // 对等节点池
	data  map[string]gcEntry   // 本地存储数据
	seq   uint64               // 全局递增版本，删除后重建的键也不会复用旧版本
	mu    sync.RWMutex         // 保护 data 与 seq 的读写锁
}

type gcEntry struct {
	value []byte
	gen   uint64
}

// groupcacheGetter 实现 groupcache.Getter 接口，从本地数据按 "key@gen" 装载.
type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(_ context.Context, versioned string, dest groupcache.Sink) error {
	idx := strings.LastIndexByte(versioned, '@')
	if idx < 0 {
		return notFound(versioned)
	}

	key := versioned[:idx]

	gen, err := strconv.ParseUint(versioned[idx+1:], 10, 64)
	if err != nil {
		return notFound(key)
	}

	g.kv.mu.RLock()
	entry, exists := g.kv.data[key]
	g.kv.mu.RUnlock()

	if !exists || entry.gen != gen {
		return notFound(key)
	}

	if err := dest.SetBytes(entry.value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

// NewGroupcacheKV 创建 Groupcache KV 实例.
// 组名在进程内必须唯一，重复创建同名组会 panic.
func NewGroupcacheKV(_ context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid groupcache kv config")
	}

	kv := &GroupcacheKV{
		data: make(map[string]gcEntry),
	}

	kv.cache = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, &groupcacheGetter{kv: kv})

	if len(gcConfig.Peers) > 0 {
		kv.peers = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		kv.peers.Set(gcConfig.Peers...)
	}

	return kv, nil
}

func (g *GroupcacheKV) versioned(key string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entry, ok := g.data[key]
	if !ok {
		return "", false
	}

	return key + "@" + strconv.FormatUint(entry.gen, 10), true
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	vk, ok := g.versioned(key)
	if !ok {
		return nil, notFound(key)
	}

	var data []byte
	if err := g.cache.Get(ctx, vk, groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, expired, err := decodeWithTTL(data, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = g.Delete(ctx, key)
		return nil, notFound(key)
	}

	return val, nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	data := make([]byte, len(encoded))
	copy(data, encoded)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	g.data[key] = gcEntry{value: data, gen: g.seq}

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, key)

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := g.Get(ctx, key); err != nil {
		return false, nil
	}

	return true, nil
}

// Keys 获取所有匹配的键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存.
func (g *GroupcacheKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
