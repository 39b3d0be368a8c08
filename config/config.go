package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`
	ServerMaxInFlight  int64         `mapstructure:"server_max_in_flight"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 缓存配置
	CacheType          string `mapstructure:"cache_type"`
	CacheRedisAddr     string `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string `mapstructure:"cache_redis_password"`
	CacheRedisDB       int    `mapstructure:"cache_redis_db"`
	CacheMaxSizeMB     int64  `mapstructure:"cache_max_size_mb"`
	CacheImageMetaTTL  int    `mapstructure:"cache_image_meta_ttl"`
	CacheThumbnailTTL  int    `mapstructure:"cache_thumbnail_ttl"`

	// 存储配置
	StorageType          string `mapstructure:"storage_type"`
	StoragePublicBaseURL string `mapstructure:"storage_public_base_url"`
	StorageLocalPath     string `mapstructure:"storage_local_path"`

	StorageMinioEndpoint  string `mapstructure:"storage_minio_endpoint"`
	StorageMinioAccessKey string `mapstructure:"storage_minio_access_key"`
	StorageMinioSecretKey string `mapstructure:"storage_minio_secret_key"`
	StorageMinioBucket    string `mapstructure:"storage_minio_bucket"`
	StorageMinioUseSSL    bool   `mapstructure:"storage_minio_use_ssl"`

	StorageS3Region       string `mapstructure:"storage_s3_region"`
	StorageS3Endpoint     string `mapstructure:"storage_s3_endpoint"`
	StorageS3AccessKey    string `mapstructure:"storage_s3_access_key"`
	StorageS3SecretKey    string `mapstructure:"storage_s3_secret_key"`
	StorageS3Bucket       string `mapstructure:"storage_s3_bucket"`
	StorageS3UsePathStyle bool   `mapstructure:"storage_s3_use_path_style"`

	StorageWebDAVURL      string        `mapstructure:"storage_webdav_url"`
	StorageWebDAVUsername string        `mapstructure:"storage_webdav_username"`
	StorageWebDAVPassword string        `mapstructure:"storage_webdav_password"`
	StorageWebDAVRootPath string        `mapstructure:"storage_webdav_root_path"`
	StorageWebDAVTimeout  time.Duration `mapstructure:"storage_webdav_timeout"`

	// JWT 配置
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTAccessTTL  time.Duration `mapstructure:"jwt_access_ttl"`
	JWTRefreshTTL time.Duration `mapstructure:"jwt_refresh_ttl"`
	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`

	// 默认管理员
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`

	// 限流配置
	RateLimitApiRPS     float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst   int           `mapstructure:"rate_limit_api_burst"`
	RateLimitImageRPS   float64       `mapstructure:"rate_limit_image_rps"`
	RateLimitImageBurst int           `mapstructure:"rate_limit_image_burst"`
	RateLimitAuthRPS    float64       `mapstructure:"rate_limit_auth_rps"`
	RateLimitAuthBurst  int           `mapstructure:"rate_limit_auth_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`

	// 上传配置
	UploadMaxSizeMB       int           `mapstructure:"upload_max_size_mb"`
	UploadMaxBatchTotalMB int           `mapstructure:"upload_max_batch_total_mb"`
	UploadTempDir         string        `mapstructure:"upload_temp_dir"`
	UploadMaxConcurrent   int64         `mapstructure:"upload_max_concurrent"`
	UploadQueueTimeout    time.Duration `mapstructure:"upload_queue_timeout"`

	// URL 导入配置
	ImportTimeout   time.Duration `mapstructure:"import_timeout"`
	ImportUserAgent string        `mapstructure:"import_user_agent"`

	// 缩略图配置
	ThumbnailMaxWidth int `mapstructure:"thumbnail_max_width"`
	ThumbnailQuality  int `mapstructure:"thumbnail_quality"`

	// 生成缩略图前检查的堆内存上限（MB），0 表示不限制
	ThumbnailMemoryLimitMB int `mapstructure:"thumbnail_memory_limit_mb"`

	// Worker 配置
	WorkerCount     int `mapstructure:"worker_count"`
	WorkerQueueSize int `mapstructure:"worker_queue_size"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		loadConfig()
	})
}

func Get() *Config {
	return &globalConfig
}

// loadConfig Core configuration loading
func loadConfig() {
	setDefaults()

	configFile := viper.GetString("config_file_path")
	if configFile == "" {
		configFile = ".env"
	}
	viper.SetConfigFile(configFile)
	if strings.HasSuffix(configFile, ".env") {
		viper.SetConfigType("env")
	}

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Info: %s not found, using defaults and environment variables\n", configFile)
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", configFile)
	}

	viper.AutomaticEnv()
	for _, key := range viper.AllKeys() {
		_ = viper.BindEnv(key, strings.ToUpper(key))
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
		os.Exit(1)
	}

	// WorkerCount: -1 = CPU 线程数, 0 = max(2, CPU核心数), >0 = 指定值
	switch {
	case globalConfig.WorkerCount < 0:
		globalConfig.WorkerCount = runtime.GOMAXPROCS(0)
	case globalConfig.WorkerCount == 0:
		globalConfig.WorkerCount = getCpus()
	}
}

// setDefaults 设置默认值
func setDefaults() {
	viper.SetDefault("server_host", "127.0.0.1")
	viper.SetDefault("server_port", 8080)
	viper.SetDefault("server_domain", "")
	viper.SetDefault("server_read_timeout", "15s")
	viper.SetDefault("server_write_timeout", "60s")
	viper.SetDefault("server_idle_timeout", "120s")
	viper.SetDefault("server_max_in_flight", 100)

	viper.SetDefault("db_type", "sqlite")
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_username", "postgres")
	viper.SetDefault("db_password", "")
	viper.SetDefault("db_name", "image-shelf")
	viper.SetDefault("db_file_path", "./data/shelf.db")
	viper.SetDefault("db_max_open_conns", 100)
	viper.SetDefault("db_max_idle_conns", 25)
	viper.SetDefault("db_conn_max_lifetime", 3600)

	viper.SetDefault("cache_type", "memory")
	viper.SetDefault("cache_redis_addr", "localhost:6379")
	viper.SetDefault("cache_redis_password", "")
	viper.SetDefault("cache_redis_db", 0)
	viper.SetDefault("cache_max_size_mb", 256)
	viper.SetDefault("cache_image_meta_ttl", 3600)
	viper.SetDefault("cache_thumbnail_ttl", 86400)

	viper.SetDefault("storage_type", "local")
	viper.SetDefault("storage_public_base_url", "")
	viper.SetDefault("storage_local_path", "./data/files")
	viper.SetDefault("storage_minio_endpoint", "")
	viper.SetDefault("storage_minio_access_key", "")
	viper.SetDefault("storage_minio_secret_key", "")
	viper.SetDefault("storage_minio_bucket", "images")
	viper.SetDefault("storage_minio_use_ssl", false)
	viper.SetDefault("storage_s3_region", "us-east-1")
	viper.SetDefault("storage_s3_endpoint", "")
	viper.SetDefault("storage_s3_access_key", "")
	viper.SetDefault("storage_s3_secret_key", "")
	viper.SetDefault("storage_s3_bucket", "")
	viper.SetDefault("storage_s3_use_path_style", true)
	viper.SetDefault("storage_webdav_url", "")
	viper.SetDefault("storage_webdav_username", "")
	viper.SetDefault("storage_webdav_password", "")
	viper.SetDefault("storage_webdav_root_path", "/image-shelf")
	viper.SetDefault("storage_webdav_timeout", "30s")

	viper.SetDefault("jwt_secret", "")
	viper.SetDefault("jwt_access_ttl", "15m")
	viper.SetDefault("jwt_refresh_ttl", "720h")
	viper.SetDefault("reset_token_ttl", "1h")

	viper.SetDefault("admin_email", "admin@localhost")
	viper.SetDefault("admin_password", "")

	viper.SetDefault("rate_limit_api_rps", 30.0)
	viper.SetDefault("rate_limit_api_burst", 60)
	viper.SetDefault("rate_limit_image_rps", 100.0)
	viper.SetDefault("rate_limit_image_burst", 200)
	viper.SetDefault("rate_limit_auth_rps", 0.5)
	viper.SetDefault("rate_limit_auth_burst", 5)
	viper.SetDefault("rate_limit_expire_time", "10m")

	viper.SetDefault("upload_max_size_mb", 50)
	viper.SetDefault("upload_max_batch_total_mb", 500)
	viper.SetDefault("upload_max_concurrent", 8)
	viper.SetDefault("upload_queue_timeout", "30s")
	viper.SetDefault("upload_temp_dir", "./data/temp")

	viper.SetDefault("import_timeout", "30s")
	viper.SetDefault("import_user_agent", "image-shelf/"+Version)

	viper.SetDefault("thumbnail_max_width", 1024)
	viper.SetDefault("thumbnail_quality", 80)
	viper.SetDefault("thumbnail_memory_limit_mb", 512)

	viper.SetDefault("worker_count", 0)
	viper.SetDefault("worker_queue_size", 1000)
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回基础 URL，用于生成短链和重定向地址
func (c *Config) BaseURL() string {
	if c.ServerDomain != "" {
		return strings.TrimRight(c.ServerDomain, "/")
	}
	host := c.ServerHost
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.ServerPort)
}

// PublicBaseURL 对象存储的公开访问前缀，未配置时走本服务的 /files
func (c *Config) PublicBaseURL() string {
	if c.StoragePublicBaseURL != "" {
		return strings.TrimRight(c.StoragePublicBaseURL, "/")
	}
	return c.BaseURL() + "/files"
}

// UploadMaxBytes 单文件大小上限
func (c *Config) UploadMaxBytes() int64 {
	if c.UploadMaxSizeMB <= 0 {
		return 50 << 20
	}
	return int64(c.UploadMaxSizeMB) << 20
}

// UploadMaxBatchBytes 批量上传总大小上限
func (c *Config) UploadMaxBatchBytes() int64 {
	if c.UploadMaxBatchTotalMB <= 0 {
		return 500 << 20
	}
	return int64(c.UploadMaxBatchTotalMB) << 20
}

// TempDir 上传暂存目录
func (c *Config) TempDir() string {
	if c.UploadTempDir == "" {
		return filepath.Join("data", "temp")
	}
	return c.UploadTempDir
}

// GetWorkerCount 返回 worker 数量
func (c *Config) GetWorkerCount() int {
	if c.WorkerCount <= 0 {
		return getCpus()
	}
	return c.WorkerCount
}

// getCpus 获取默认线程数量
func getCpus() int {
	n := runtime.GOMAXPROCS(0)
	if n < 2 {
		return 2
	}
	return n
}
