package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	CORS       CORSConfig       `yaml:"cors"`
	Thumbnail  ThumbnailConfig  `yaml:"thumbnail"`
	Pagination PaginationConfig `yaml:"pagination"`
	Lock       LockConfig       `yaml:"lock"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Charset      string `yaml:"charset"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type StorageConfig struct {
	BasePath      string `yaml:"base_path"`
	PublicBaseURL string `yaml:"public_base_url"`
	ServePublic   bool   `yaml:"serve_public"`
	MaxFileSize   int64  `yaml:"max_file_size"`
	// Seconds between sweeps of abandoned partial uploads, and how old one must be to go.
	TempCleanupInterval int `yaml:"temp_cleanup_interval"`
	TempRetention       int `yaml:"temp_retention"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ThumbnailConfig struct {
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
	Quality int `yaml:"quality"`
}

type PaginationConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// LockConfig bounds how long a subtree lock is held and how long a caller waits for it.
type LockConfig struct {
	TTLSeconds  int `yaml:"ttl_seconds"`
	WaitSeconds int `yaml:"wait_seconds"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const DefaultMaxFileSize int64 = 10 << 20

var AppConfig *Config

// LoadConfig reads the YAML file at path, then applies FILEREPO_* environment
// overrides and defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	AppConfig = &cfg
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "FILEREPO_HOST")
	setInt(&cfg.Server.Port, "FILEREPO_PORT")

	setString(&cfg.Database.Driver, "FILEREPO_DB_DRIVER")
	setString(&cfg.Database.Host, "FILEREPO_DB_HOST")
	setInt(&cfg.Database.Port, "FILEREPO_DB_PORT")
	setString(&cfg.Database.Username, "FILEREPO_DB_USER")
	setString(&cfg.Database.Password, "FILEREPO_DB_PASSWORD")
	setString(&cfg.Database.Database, "FILEREPO_DB_NAME")

	setString(&cfg.Storage.BasePath, "FILEREPO_STORAGE_PATH")
	setString(&cfg.Storage.PublicBaseURL, "FILEREPO_PUBLIC_BASE_URL")

	setBool(&cfg.Redis.Enabled, "FILEREPO_REDIS_ENABLED")
	setString(&cfg.Redis.Host, "FILEREPO_REDIS_HOST")
	setInt(&cfg.Redis.Port, "FILEREPO_REDIS_PORT")
	setString(&cfg.Redis.Password, "FILEREPO_REDIS_PASSWORD")

	setString(&cfg.JWT.Secret, "FILEREPO_JWT_SECRET")
	setString(&cfg.Log.Level, "FILEREPO_LOG_LEVEL")

	if v := strings.TrimSpace(os.Getenv("FILEREPO_CORS_ORIGINS")); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Database.Charset == "" {
		cfg.Database.Charset = "utf8mb4"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 100
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./storage"
	}
	if cfg.Storage.PublicBaseURL == "" {
		cfg.Storage.PublicBaseURL = "/storage"
	}
	cfg.Storage.PublicBaseURL = strings.TrimRight(cfg.Storage.PublicBaseURL, "/")
	if cfg.Storage.MaxFileSize <= 0 {
		cfg.Storage.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Storage.TempCleanupInterval == 0 {
		cfg.Storage.TempCleanupInterval = 3600
	}
	if cfg.Storage.TempRetention == 0 {
		cfg.Storage.TempRetention = 3600
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "127.0.0.1"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.ExpireHours == 0 {
		cfg.JWT.ExpireHours = 24
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Thumbnail.Width == 0 {
		cfg.Thumbnail.Width = 200
	}
	if cfg.Thumbnail.Height == 0 {
		cfg.Thumbnail.Height = 200
	}
	if cfg.Thumbnail.Quality == 0 {
		cfg.Thumbnail.Quality = 80
	}
	if cfg.Pagination.DefaultPageSize == 0 {
		cfg.Pagination.DefaultPageSize = 20
	}
	if cfg.Pagination.MaxPageSize == 0 {
		cfg.Pagination.MaxPageSize = 100
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 30
	}
	if cfg.Lock.WaitSeconds == 0 {
		cfg.Lock.WaitSeconds = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}
