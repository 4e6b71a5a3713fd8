package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
	StorageDriverMemory   = "memory"
)

// Near-front notification modes
const (
	NearFrontModeCrossing = "crossing"
	NearFrontModeAlways   = "always"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	OTel       OTelConfig       `mapstructure:"otel"`
	Waitlist   WaitlistConfig   `mapstructure:"waitlist"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	PubNub     PubNubConfig     `mapstructure:"pubnub"`
	Migrations MigrationsConfig `mapstructure:"migrations"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	EnableTracing   bool          `mapstructure:"enable_tracing"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection URL used by migrations
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// WaitlistConfig holds queue engine settings
type WaitlistConfig struct {
	StorageDriver         string        `mapstructure:"storage_driver"`
	NearFrontThreshold    int           `mapstructure:"near_front_threshold"`
	NearFrontMode         string        `mapstructure:"near_front_mode"`
	ConflictRetries       int           `mapstructure:"conflict_retries"`
	SweepInterval         time.Duration `mapstructure:"sweep_interval"`
	SweepEnabled          bool          `mapstructure:"sweep_enabled"`
	DefaultServiceMinutes int           `mapstructure:"default_service_minutes"`
	DefaultNoShowMinutes  int           `mapstructure:"default_no_show_minutes"`
}

// NotifyConfig selects the notification channels
type NotifyConfig struct {
	KafkaEnabled       bool   `mapstructure:"kafka_enabled"`
	KafkaTopic         string `mapstructure:"kafka_topic"`
	RedisEnabled       bool   `mapstructure:"redis_enabled"`
	RedisChannelPrefix string `mapstructure:"redis_channel_prefix"`
	PubNubEnabled      bool   `mapstructure:"pubnub_enabled"`
}

// PubNubConfig holds PubNub keys
type PubNubConfig struct {
	PublishKey   string `mapstructure:"publish_key"`
	SubscribeKey string `mapstructure:"subscribe_key"`
	SecretKey    string `mapstructure:"secret_key"`
}

// MigrationsConfig holds the golang-migrate source
type MigrationsConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// A missing .env is fine, env vars still apply
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific path
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "waitlist")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	// Server defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	// Database defaults
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_DBNAME", "waitlist_db")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_CONNS", 25)
	v.SetDefault("DATABASE_MIN_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", "30m")
	v.SetDefault("DATABASE_ENABLE_TRACING", false)

	// Redis defaults
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka defaults
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "waitlist")

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "waitlist")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Waitlist engine defaults
	v.SetDefault("WAITLIST_STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("WAITLIST_NEAR_FRONT_THRESHOLD", 3)
	v.SetDefault("WAITLIST_NEAR_FRONT_MODE", NearFrontModeCrossing)
	v.SetDefault("WAITLIST_CONFLICT_RETRIES", 3)
	v.SetDefault("WAITLIST_SWEEP_INTERVAL", "30s")
	v.SetDefault("WAITLIST_SWEEP_ENABLED", true)
	v.SetDefault("WAITLIST_DEFAULT_SERVICE_MINUTES", 5)
	v.SetDefault("WAITLIST_DEFAULT_NO_SHOW_MINUTES", 5)

	// Notification channels
	v.SetDefault("NOTIFY_KAFKA_ENABLED", false)
	v.SetDefault("NOTIFY_KAFKA_TOPIC", "waitlist-notifications")
	v.SetDefault("NOTIFY_REDIS_ENABLED", true)
	v.SetDefault("NOTIFY_REDIS_CHANNEL_PREFIX", "waitlist")
	v.SetDefault("NOTIFY_PUBNUB_ENABLED", false)

	v.SetDefault("MIGRATIONS_PATH", "file://backend-waitlist/migrations")
}

func bindConfig(v *viper.Viper, cfg *Config) error {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")

	// Database
	cfg.Database.Host = v.GetString("DATABASE_HOST")
	cfg.Database.Port = v.GetInt("DATABASE_PORT")
	cfg.Database.User = v.GetString("DATABASE_USER")
	cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	cfg.Database.DBName = v.GetString("DATABASE_DBNAME")
	cfg.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	cfg.Database.MaxConns = v.GetInt("DATABASE_MAX_CONNS")
	cfg.Database.MinConns = v.GetInt("DATABASE_MIN_CONNS")
	cfg.Database.ConnMaxLifetime = v.GetDuration("DATABASE_CONN_MAX_LIFETIME")
	cfg.Database.ConnMaxIdleTime = v.GetDuration("DATABASE_CONN_MAX_IDLE_TIME")
	cfg.Database.EnableTracing = v.GetBool("DATABASE_ENABLE_TRACING")

	// Redis
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Kafka
	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Waitlist
	cfg.Waitlist.StorageDriver = strings.ToLower(v.GetString("WAITLIST_STORAGE_DRIVER"))
	cfg.Waitlist.NearFrontThreshold = v.GetInt("WAITLIST_NEAR_FRONT_THRESHOLD")
	cfg.Waitlist.NearFrontMode = strings.ToLower(v.GetString("WAITLIST_NEAR_FRONT_MODE"))
	cfg.Waitlist.ConflictRetries = v.GetInt("WAITLIST_CONFLICT_RETRIES")
	cfg.Waitlist.SweepInterval = v.GetDuration("WAITLIST_SWEEP_INTERVAL")
	cfg.Waitlist.SweepEnabled = v.GetBool("WAITLIST_SWEEP_ENABLED")
	cfg.Waitlist.DefaultServiceMinutes = v.GetInt("WAITLIST_DEFAULT_SERVICE_MINUTES")
	cfg.Waitlist.DefaultNoShowMinutes = v.GetInt("WAITLIST_DEFAULT_NO_SHOW_MINUTES")

	// Notify
	cfg.Notify.KafkaEnabled = v.GetBool("NOTIFY_KAFKA_ENABLED")
	cfg.Notify.KafkaTopic = v.GetString("NOTIFY_KAFKA_TOPIC")
	cfg.Notify.RedisEnabled = v.GetBool("NOTIFY_REDIS_ENABLED")
	cfg.Notify.RedisChannelPrefix = v.GetString("NOTIFY_REDIS_CHANNEL_PREFIX")
	cfg.Notify.PubNubEnabled = v.GetBool("NOTIFY_PUBNUB_ENABLED")

	// PubNub
	cfg.PubNub.PublishKey = v.GetString("PUBNUB_PUBLISH_KEY")
	cfg.PubNub.SubscribeKey = v.GetString("PUBNUB_SUBSCRIBE_KEY")
	cfg.PubNub.SecretKey = v.GetString("PUBNUB_SECRET_KEY")

	cfg.Migrations.Path = v.GetString("MIGRATIONS_PATH")

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Waitlist.StorageDriver {
	case StorageDriverPostgres, StorageDriverRedis, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Waitlist.StorageDriver)
	}

	if c.Waitlist.NearFrontThreshold < 1 {
		return fmt.Errorf("near-front threshold must be at least 1, got %d", c.Waitlist.NearFrontThreshold)
	}

	switch c.Waitlist.NearFrontMode {
	case NearFrontModeCrossing, NearFrontModeAlways:
	default:
		return fmt.Errorf("unknown near-front mode: %q", c.Waitlist.NearFrontMode)
	}

	if c.Waitlist.ConflictRetries < 0 {
		return fmt.Errorf("conflict retries cannot be negative")
	}

	if c.Waitlist.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	if c.Waitlist.DefaultServiceMinutes <= 0 || c.Waitlist.DefaultNoShowMinutes <= 0 {
		return fmt.Errorf("default service and no-show minutes must be positive")
	}

	if c.Notify.PubNubEnabled && c.PubNub.PublishKey == "" {
		return fmt.Errorf("PUBNUB_PUBLISH_KEY is required when pubnub notifications are enabled")
	}

	return nil
}

// ValidateDatabase validates database configuration
func (c *Config) ValidateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("DATABASE_DBNAME is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
