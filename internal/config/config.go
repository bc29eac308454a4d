package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	OneSignal OneSignalConfig `mapstructure:"onesignal"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
	Mail      MailConfig      `mapstructure:"mail"`
	Video     VideoConfig     `mapstructure:"video"`
	App       AppConfig       `mapstructure:"app"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-" yaml:"-"`
	MigrateOnly  bool `mapstructure:"-" yaml:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

// DatabaseConfig Driver 取值 mysql / postgres / sqlite
type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string
	Path      string
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessExpireTime   time.Duration `mapstructure:"access_expire_hours"`
	RefreshExpireTime  time.Duration `mapstructure:"refresh_expire_hours"`
	ResetExpireMinutes int           `mapstructure:"reset_expire_minutes"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
	ServiceName       string `mapstructure:"service_name"`
}

// RedisConfig URL 优先于 Host/Port
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

type OneSignalConfig struct {
	AppID      string `mapstructure:"app_id"`
	RestAPIKey string `mapstructure:"rest_api_key"`
	APIURL     string `mapstructure:"api_url"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	APIURL     string `mapstructure:"api_url"`
}

type MailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromEmail    string `mapstructure:"from_email"`
}

type VideoConfig struct {
	VimeoAPIURL           string `mapstructure:"vimeo_api_url"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	ThumbnailCacheSize    int    `mapstructure:"thumbnail_cache_size"`
}

type AppConfig struct {
	FrontendDomain           string `mapstructure:"frontend_domain"`
	PhoneCodeLifetimeMinutes int    `mapstructure:"phone_code_lifetime_minutes"`
	PageSize                 int    `mapstructure:"page_size"`
	ReconcileIntervalHours   int    `mapstructure:"reconcile_interval_hours"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "newsreel.db")

	v.SetDefault("jwt.access_expire_hours", 24*30)
	v.SetDefault("jwt.refresh_expire_hours", 24*365)
	v.SetDefault("jwt.reset_expire_minutes", 60)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")

	v.SetDefault("tracing.service_name", "newsreel")

	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("onesignal.api_url", "https://onesignal.com/api/v1/notifications")
	v.SetDefault("twilio.api_url", "https://api.twilio.com")
	v.SetDefault("twilio.from_number", "+15672293739")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.from_email", "support@softplease.com")

	v.SetDefault("video.vimeo_api_url", "https://vimeo.com")
	v.SetDefault("video.request_timeout_seconds", 5)
	v.SetDefault("video.thumbnail_cache_size", 512)

	v.SetDefault("app.phone_code_lifetime_minutes", 5)
	v.SetDefault("app.page_size", 20)
	v.SetDefault("app.reconcile_interval_hours", 0)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("NEWSREEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "PORT")

	// Push / SMS / Mail
	v.BindEnv("onesignal.app_id", "ONESIGNAL_APP_ID")
	v.BindEnv("onesignal.rest_api_key", "ONESIGNAL_REST_API_KEY")
	v.BindEnv("twilio.account_sid", "TWILIO_ACCOUNT_SID")
	v.BindEnv("twilio.auth_token", "TWILIO_AUTH_TOKEN")
	v.BindEnv("mail.smtp_host", "SMTP_HOST")
	v.BindEnv("mail.smtp_port", "SMTP_PORT")
	v.BindEnv("mail.smtp_username", "SMTP_USERNAME")
	v.BindEnv("mail.smtp_password", "SMTP_PASSWORD")
	v.BindEnv("app.frontend_domain", "FRONTEND_DOMAIN")

	// Storage / OSS
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.AccessExpireTime = cfg.JWT.AccessExpireTime * time.Hour
	cfg.JWT.RefreshExpireTime = cfg.JWT.RefreshExpireTime * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// RateWindow 限流窗口
func (c *Config) RateWindow() time.Duration {
	if c.RateLimit.WindowMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimit.WindowMinutes) * time.Minute
}

func (c *Config) VideoTimeout() time.Duration {
	return time.Duration(c.Video.RequestTimeoutSeconds) * time.Second
}

func (c *Config) PhoneCodeLifetime() time.Duration {
	return time.Duration(c.App.PhoneCodeLifetimeMinutes) * time.Minute
}

func (c *Config) ResetTokenLifetime() time.Duration {
	return time.Duration(c.JWT.ResetExpireMinutes) * time.Minute
}
