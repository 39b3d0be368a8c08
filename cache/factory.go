package cache

import (
	"fmt"
	"log"

	"github.com/anoixa/image-shelf/config"
)

// NewProvider 按配置创建缓存提供者
// redis 连接失败时回退到内存缓存，缓存不可用不影响服务启动
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.CacheType {
	case "redis":
		redisCache, err := NewRedisCache(RedisConfig{
			Address:  cfg.CacheRedisAddr,
			Password: cfg.CacheRedisPassword,
			DB:       cfg.CacheRedisDB,
		})
		if err == nil {
			log.Printf("[Cache] Using redis cache at %s", cfg.CacheRedisAddr)
			return redisCache, nil
		}
		log.Printf("[Cache] Redis unavailable, falling back to memory: %v", err)
		return newMemoryFromConfig(cfg)
	case "", "memory":
		return newMemoryFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unknown cache type '%s'", cfg.CacheType)
	}
}

func newMemoryFromConfig(cfg *config.Config) (Provider, error) {
	maxMB := cfg.CacheMaxSizeMB
	if maxMB <= 0 {
		maxMB = 256
	}
	log.Printf("[Cache] Using memory cache, max %d MB", maxMB)
	return NewMemoryCache(MemoryConfig{
		NumCounters: 1_000_000,
		MaxCost:     maxMB << 20,
		BufferItems: 64,
	})
}
