package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，如 BOARDS_DATABASE_DSN
const EnvPrefix = "BOARDS"

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Storage  StorageConfig  `mapstructure:"storage"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Task     TaskConfig     `mapstructure:"task"`
}

type ServerConfig struct {
	Port                 string        `mapstructure:"port"`
	Mode                 string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout          time.Duration `mapstructure:"read_timeout"`
	WriteTimeout         time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins          []string      `mapstructure:"cors_origins"`
	MaxUploadMB          int64         `mapstructure:"max_upload_mb"`
	CacheRefreshCooldown time.Duration `mapstructure:"cache_refresh_cooldown"`
	WriteRatePerSec      float64       `mapstructure:"write_rate_per_sec"` // 0 表示不限流
	WriteBurst           int           `mapstructure:"write_burst"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent | error | warn | info
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig Address 为空时使用进程内缓存
type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NATSConfig URL 为空时不发布事件
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type StorageConfig struct {
	Provider      string `mapstructure:"provider"` // s3 | minio | supabase | local
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Endpoint      string `mapstructure:"endpoint"`
	UsePathStyle  bool   `mapstructure:"use_path_style"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	CDNDomain     string `mapstructure:"cdn_domain"`
	BasePath      string `mapstructure:"base_path"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	MaxImageMB    int64  `mapstructure:"max_image_mb"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type TaskConfig struct {
	CacheWarmEnabled bool   `mapstructure:"cache_warm_enabled"`
	CacheWarmSpec    string `mapstructure:"cache_warm_spec"`
}

// ==================== 加载 ====================

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.cache_refresh_cooldown", "1m")
	v.SetDefault("server.write_rate_per_sec", 5)
	v.SetDefault("server.write_burst", 20)

	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=boards port=5432 sslmode=disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "5m")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "boards")

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.bucket", "listing-images")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.cdn_domain", "")
	v.SetDefault("storage.base_path", "./uploads")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/uploads")
	v.SetDefault("storage.max_image_mb", 10)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.access_token_ttl", "1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("task.cache_warm_enabled", true)
	v.SetDefault("task.cache_warm_spec", "0 */5 * * * *")
}

// Load 读取配置：.env -> 配置文件 -> BOARDS_ 环境变量，后者覆盖前者
// path 可以是文件或目录，为空时在当前目录查找 config.yaml
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = "."
	}
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查必填项
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret 不能为空 (BOARDS_JWT_SECRET)")
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn 不能为空 (BOARDS_DATABASE_DSN)")
	}
	switch c.Storage.Provider {
	case "s3", "minio", "supabase", "local":
	default:
		return fmt.Errorf("不支持的存储提供者: %s", c.Storage.Provider)
	}
	return nil
}
