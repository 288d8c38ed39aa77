package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Upload drivers
const (
	UploadCloudinary = "cloudinary"
	UploadS3         = "s3"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Remote    RemoteConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type StorageConfig struct {
	Driver    string
	KeyPrefix string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns the host:port pair of the redis server
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type RemoteConfig struct {
	CatalogURL string
	Timeout    time.Duration
}

type UploadConfig struct {
	Driver                 string
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	S3Region               string
	S3Bucket               string
	S3Prefix               string
	S3PublicBaseURL        string
	MaxUploadBytes         int64
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// IsDevelopment reports whether the server runs outside production
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("STORAGE_DRIVER", StoragePostgres)
	viper.SetDefault("STORAGE_KEY_PREFIX", "catalog-wizard")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REMOTE_CATALOG_URL", "http://localhost:5173")
	viper.SetDefault("REMOTE_TIMEOUT_SECONDS", 5)
	viper.SetDefault("UPLOAD_DRIVER", UploadCloudinary)
	viper.SetDefault("S3_PREFIX", "uploads")
	viper.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 120)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(viper.GetString("STORAGE_DRIVER")),
			KeyPrefix: viper.GetString("STORAGE_KEY_PREFIX"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Remote: RemoteConfig{
			CatalogURL: viper.GetString("REMOTE_CATALOG_URL"),
			Timeout:    time.Duration(viper.GetInt("REMOTE_TIMEOUT_SECONDS")) * time.Second,
		},
		Upload: UploadConfig{
			Driver:                 strings.ToLower(viper.GetString("UPLOAD_DRIVER")),
			CloudinaryCloudName:    viper.GetString("CLOUDINARY_CLOUD_NAME"),
			CloudinaryUploadPreset: viper.GetString("CLOUDINARY_UPLOAD_PRESET"),
			S3Region:               viper.GetString("S3_REGION"),
			S3Bucket:               viper.GetString("S3_BUCKET"),
			S3Prefix:               viper.GetString("S3_PREFIX"),
			S3PublicBaseURL:        viper.GetString("S3_PUBLIC_BASE_URL"),
			MaxUploadBytes:         viper.GetInt64("UPLOAD_MAX_BYTES"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
