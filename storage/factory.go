package storage

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/anoixa/image-shelf/config"
)

// Factory 存储工厂，按名称持有已初始化的提供者
type Factory struct {
	providers       map[string]Provider
	defaultProvider string
	publicBaseURL   string
}

// NewFactory 按配置初始化存储
// 本地存储路径配置存在时总会初始化，旧记录可能仍指向 local
func NewFactory(cfg *config.Config) (*Factory, error) {
	factory := &Factory{
		providers:       make(map[string]Provider),
		defaultProvider: cfg.StorageType,
		publicBaseURL:   cfg.PublicBaseURL(),
	}

	log.Println("[Storage] Initializing storage providers...")

	if cfg.StorageLocalPath != "" {
		local, err := NewLocalStorage(cfg.StorageLocalPath)
		if err != nil {
			log.Printf("[Storage] Failed to initialize local storage: %v", err)
		} else {
			factory.providers[local.Name()] = local
		}
	}

	switch cfg.StorageType {
	case "local":
	case "minio":
		p, err := NewMinioStorage(MinioConfig{
			Endpoint:  cfg.StorageMinioEndpoint,
			AccessKey: cfg.StorageMinioAccessKey,
			SecretKey: cfg.StorageMinioSecretKey,
			Bucket:    cfg.StorageMinioBucket,
			UseSSL:    cfg.StorageMinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio storage: %w", err)
		}
		factory.providers[p.Name()] = p
	case "s3":
		p, err := NewS3Storage(context.Background(), S3Config{
			Region:       cfg.StorageS3Region,
			Endpoint:     cfg.StorageS3Endpoint,
			AccessKey:    cfg.StorageS3AccessKey,
			SecretKey:    cfg.StorageS3SecretKey,
			Bucket:       cfg.StorageS3Bucket,
			UsePathStyle: cfg.StorageS3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		factory.providers[p.Name()] = p
	case "webdav":
		p, err := NewWebDAVStorage(WebDAVConfig{
			URL:      cfg.StorageWebDAVURL,
			Username: cfg.StorageWebDAVUsername,
			Password: cfg.StorageWebDAVPassword,
			RootPath: cfg.StorageWebDAVRootPath,
			Timeout:  cfg.StorageWebDAVTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize webdav storage: %w", err)
		}
		factory.providers[p.Name()] = p
	default:
		return nil, fmt.Errorf("unknown storage type '%s'", cfg.StorageType)
	}

	if _, ok := factory.providers[factory.defaultProvider]; !ok {
		return nil, fmt.Errorf("default storage type '%s' is not available", factory.defaultProvider)
	}
	log.Printf("[Storage] Default storage provider set to: '%s'", factory.defaultProvider)

	return factory, nil
}

// NewFactoryWithProviders 测试和命令行工具直接注入提供者
func NewFactoryWithProviders(defaultName, publicBaseURL string, providers ...Provider) *Factory {
	f := &Factory{
		providers:       make(map[string]Provider, len(providers)),
		defaultProvider: defaultName,
		publicBaseURL:   publicBaseURL,
	}
	for _, p := range providers {
		f.providers[p.Name()] = p
	}
	return f
}

// Get 获取指定名称的存储提供者，空名称返回默认
func (f *Factory) Get(name string) (Provider, error) {
	if name == "" {
		name = f.defaultProvider
	}
	provider, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("storage provider '%s' not found", name)
	}
	return provider, nil
}

// GetDefault 获取默认存储提供者
func (f *Factory) GetDefault() Provider {
	provider, _ := f.Get(f.defaultProvider)
	return provider
}

// GetDefaultName 获取默认存储提供者名称
func (f *Factory) GetDefaultName() string {
	return f.defaultProvider
}

// URLFor 返回对象的公开地址
func (f *Factory) URLFor(key string) string {
	return PublicURL(f.publicBaseURL, key)
}

// ListProviders 列出所有可用的存储提供者名称
func (f *Factory) ListProviders() []string {
	names := make([]string, 0, len(f.providers))
	for name := range f.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Health 检查全部提供者
func (f *Factory) Health(ctx context.Context) map[string]error {
	result := make(map[string]error, len(f.providers))
	for name, p := range f.providers {
		result[name] = p.Health(ctx)
	}
	return result
}
