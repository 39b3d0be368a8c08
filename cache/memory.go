package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// MemoryConfig 内存缓存配置
type MemoryConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// MemoryCache 基于 ristretto 的内存缓存，cost 为序列化后的字节数
type MemoryCache struct {
	client *ristretto.Cache
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache(cfg MemoryConfig) (*MemoryCache, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &MemoryCache{client: client}, nil
}

// Set 设置缓存项
func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if m.client.SetWithTTL(key, data, int64(len(data)), expiration) {
		// 写入是异步的，等待生效后再返回
		m.client.Wait()
	}
	return nil
}

// Get 获取缓存项
func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	value, found := m.client.Get(key)
	if !found {
		return ErrCacheMiss
	}
	data, ok := value.([]byte)
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

// Delete 删除缓存项
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.client.Del(key)
	return nil
}

// Exists 检查缓存项是否存在
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, found := m.client.Get(key)
	return found, nil
}

// Close 关闭缓存
func (m *MemoryCache) Close() error {
	m.client.Close()
	return nil
}

// Name 返回缓存名称
func (m *MemoryCache) Name() string {
	return "memory"
}
