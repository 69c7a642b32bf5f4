package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Payroll    PayrollConfig    `mapstructure:"payroll"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Push       PushConfig       `mapstructure:"push"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	BaseURL   string     `mapstructure:"base_url"`
	Timezone  string     `mapstructure:"timezone"` // 排班时间所在时区
	RateLimit int        `mapstructure:"rate_limit"`
	CORS      CORSConfig `mapstructure:"cors"`
}

// Location 解析排班时区，失败时回退 UTC
func (c *ServerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string   `mapstructure:"level"`
	Format string   `mapstructure:"format"` // json | console
	Output []string `mapstructure:"output"` // stdout / stderr / 文件路径
}

// AttendanceConfig 考勤 / 缺勤检测配置
// 宽限期等参数可被 system_config 表覆盖，这里是缺省值
type AttendanceConfig struct {
	GraceMinutes     int           `mapstructure:"grace_minutes"`
	ProximityMinutes int           `mapstructure:"proximity_minutes"` // 班次开始前多久的签到仍然有效
	Lookback         time.Duration `mapstructure:"lookback"`
	Buffer           time.Duration `mapstructure:"buffer"`
	CheckInTypes     []string      `mapstructure:"check_in_types"`
}

// PayrollConfig 工资差异配置
type PayrollConfig struct {
	VarianceThresholdHours float64 `mapstructure:"variance_threshold_hours"`
	MissingInputPolicy     string  `mapstructure:"missing_input_policy"` // skip | zero
	MaxPeriodDays          int     `mapstructure:"max_period_days"`
}

// JobsConfig 周期任务配置
type JobsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	NoShowInterval  time.Duration `mapstructure:"no_show_interval"`
	PayrollInterval time.Duration `mapstructure:"payroll_interval"`
	LicenceInterval time.Duration `mapstructure:"licence_interval"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

// PushConfig Web Push VAPID 配置，公私钥为空时不启用
type PushConfig struct {
	PublicKey  string `mapstructure:"vapid_public_key"`
	PrivateKey string `mapstructure:"vapid_private_key"`
	Subject    string `mapstructure:"subject"`
	TTL        int    `mapstructure:"ttl"`
	Workers    int    `mapstructure:"workers"`
}

// Enabled Web Push 是否可用
func (c *PushConfig) Enabled() bool {
	return c.PublicKey != "" && c.PrivateKey != ""
}

// TelegramConfig Telegram 告警配置，token 为空时不启用
type TelegramConfig struct {
	BotToken       string `mapstructure:"bot_token"`
	SupervisorChat int64  `mapstructure:"supervisor_chat_id"`
}

// CacheConfig 进程内响应缓存配置
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.timezone", "Europe/London")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "guardian")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", []string{"stdout"})

	v.SetDefault("attendance.grace_minutes", 10)
	v.SetDefault("attendance.proximity_minutes", 30)
	v.SetDefault("attendance.lookback", "6h")
	v.SetDefault("attendance.buffer", "30m")
	v.SetDefault("attendance.check_in_types", []string{"checked_in"})

	v.SetDefault("payroll.variance_threshold_hours", 0.25)
	v.SetDefault("payroll.missing_input_policy", "skip")
	v.SetDefault("payroll.max_period_days", 31)

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.no_show_interval", "5m")
	v.SetDefault("jobs.payroll_interval", "24h")
	v.SetDefault("jobs.licence_interval", "24h")
	v.SetDefault("jobs.lock_ttl", "4m")

	v.SetDefault("push.subject", "mailto:ops@example.com")
	v.SetDefault("push.ttl", 3600)
	v.SetDefault("push.workers", 2)

	v.SetDefault("cache.ttl", "1m")

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
	// 本地开发时 .env 中的 GUARDIAN_* 注入进程环境；不存在则忽略，已有的环境变量不会被覆盖
	_ = godotenv.Load()
	v.SetEnvPrefix("GUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
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
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: server.timezone 无效: %w", err)
	}
	if c.Attendance.GraceMinutes < 0 {
		return fmt.Errorf("配置校验失败: attendance.grace_minutes 不能为负数")
	}
	if c.Attendance.Lookback <= 0 {
		return fmt.Errorf("配置校验失败: attendance.lookback 必须为正数")
	}
	if c.Payroll.VarianceThresholdHours < 0 {
		return fmt.Errorf("配置校验失败: payroll.variance_threshold_hours 不能为负数")
	}
	switch c.Payroll.MissingInputPolicy {
	case "skip", "zero":
	default:
		return fmt.Errorf("配置校验失败: payroll.missing_input_policy 只能是 skip 或 zero")
	}
	return nil
}
