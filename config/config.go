package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Search   SearchConfig   `mapstructure:"search"`
	Media    MediaConfig    `mapstructure:"media"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"` // 备份上传也受此限制
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig SQLite 数据库配置
type DatabaseConfig struct {
	Path         string `mapstructure:"path"` // 为空时使用 storage.backuped_root/default.sqlite
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	BusyTimeout  int    `mapstructure:"busy_timeout"` // 毫秒
}

// DSN 生成 go-sqlite3 连接字符串（开启 WAL 与外键）
func (c *DatabaseConfig) DSN() string {
	timeout := c.BusyTimeout
	if timeout <= 0 {
		timeout = 5000
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", c.Path, timeout)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	LoginRateLimit int           `mapstructure:"login_rate_limit"` // 每分钟每 IP
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig 本地存储目录
type StorageConfig struct {
	Root         string `mapstructure:"root"`          // 备份文件存放于 root/backups
	BackupedRoot string `mapstructure:"backuped_root"` // 备份/恢复的数据目录（数据库 + 媒体）
	MediaRoot    string `mapstructure:"media_root"`
}

// BackupsDir 备份归档目录
func (c *StorageConfig) BackupsDir() string {
	return filepath.Join(c.Root, "backups")
}

// BackupConfig 备份配置
type BackupConfig struct {
	Format           string          `mapstructure:"format"`
	SourceID         string          `mapstructure:"source_id"`
	AppVersion       string          `mapstructure:"app_version"`
	ScheduleInterval time.Duration   `mapstructure:"schedule_interval"` // 0 表示关闭定时备份
	Retention        RetentionConfig `mapstructure:"retention"`
	Remote           RemoteConfig    `mapstructure:"remote"`
}

// RetentionConfig 备份保留策略
type RetentionConfig struct {
	MinCount   int `mapstructure:"min_count"`
	MaxCount   int `mapstructure:"max_count"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// RemoteConfig S3 兼容的异地备份存储
type RemoteConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// SearchConfig 搜索配置
type SearchConfig struct {
	MaxResults int `mapstructure:"max_results"`
}

// MediaConfig 媒体导入配置
type MediaConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
}

// creatableFormats 可用于创建备份的格式（zip 仅支持恢复）
var creatableFormats = map[string]bool{"tar": true, "gztar": true, "bztar": true}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.max_body_bytes", 4<<30)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:8000"})

	v.SetDefault("db.path", "")
	v.SetDefault("db.max_open_conns", 4)
	v.SetDefault("db.busy_timeout", 5000)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "12h")
	v.SetDefault("auth.login_rate_limit", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage.root", "./storage")
	v.SetDefault("storage.backuped_root", "./storage/main")
	v.SetDefault("storage.media_root", "./storage/main/media")

	v.SetDefault("backup.format", "bztar")
	v.SetDefault("backup.source_id", "ideascube")
	v.SetDefault("backup.app_version", "0.1.0")
	v.SetDefault("backup.schedule_interval", "0s")
	v.SetDefault("backup.retention.min_count", 1)
	v.SetDefault("backup.retention.max_count", 0)
	v.SetDefault("backup.retention.max_age_days", 0)
	v.SetDefault("backup.remote.enabled", false)
	v.SetDefault("backup.remote.region", "us-east-1")
	v.SetDefault("backup.remote.prefix", "backups")
	v.SetDefault("backup.remote.use_path_style", true)

	v.SetDefault("search.max_results", 200)

	v.SetDefault("media.default_language", "en")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("IDEASCUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(cfg.Storage.BackupedRoot, "default.sqlite")
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Storage.Root == "" || c.Storage.BackupedRoot == "" {
		return fmt.Errorf("配置校验失败: storage.root 与 storage.backuped_root 不能为空")
	}
	if !creatableFormats[c.Backup.Format] {
		return fmt.Errorf("配置校验失败: backup.format 仅支持 tar/gztar/bztar，实际为 %q", c.Backup.Format)
	}
	// 备份文件名以 "-" 分段，来源与版本中不能出现分隔符
	for name, val := range map[string]string{"backup.source_id": c.Backup.SourceID, "backup.app_version": c.Backup.AppVersion} {
		if val == "" || strings.ContainsAny(val, "-_") {
			return fmt.Errorf("配置校验失败: %s 不能为空且不能包含 '-' 或 '_'", name)
		}
	}
	if c.Backup.Remote.Enabled && c.Backup.Remote.Bucket == "" {
		return fmt.Errorf("配置校验失败: 启用异地备份时 backup.remote.bucket 不能为空")
	}
	return nil
}
