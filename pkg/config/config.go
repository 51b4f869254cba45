package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the leave bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Store     StoreConfig     `mapstructure:"store" validate:"required"`
	Pending   PendingConfig   `mapstructure:"pending" validate:"required"`
	Roles     RolesConfig     `mapstructure:"roles" validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	I18n      I18nConfig      `mapstructure:"i18n"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type BotConfig struct {
	Token   string        `mapstructure:"token" validate:"required"`
	Mode    string        `mapstructure:"mode" validate:"omitempty,oneof=polling webhook"`
	Timeout time.Duration `mapstructure:"timeout"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

type WebhookConfig struct {
	Listen    string `mapstructure:"listen"`
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type DatabaseConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	SSLMode       string `mapstructure:"sslmode"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// StoreConfig selects the backing medium for completed leave requests.
type StoreConfig struct {
	Backend  string `mapstructure:"backend" validate:"required,oneof=file redis"`
	Path     string `mapstructure:"path" validate:"required_if=Backend file"`
	RedisKey string `mapstructure:"redis_key"`
}

// PendingConfig controls the in-flight request table.
type PendingConfig struct {
	Backend       string        `mapstructure:"backend" validate:"required,oneof=memory redis"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

// RolesConfig selects where assignable roles come from.
type RolesConfig struct {
	Source   string                 `mapstructure:"source" validate:"required,oneof=static postgres"`
	CacheTTL time.Duration          `mapstructure:"cache_ttl"`
	Default  []RoleEntry            `mapstructure:"default" validate:"dive"`
	Members  map[string][]RoleEntry `mapstructure:"members" validate:"dive,dive"`
}

type RoleEntry struct {
	ID    string `mapstructure:"id" validate:"required"`
	Label string `mapstructure:"label"`
}

type RateLimitConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Limit     int     `mapstructure:"limit" validate:"gte=0"`
	Window    string  `mapstructure:"window"`
	Whitelist []int64 `mapstructure:"whitelist"`
}

type I18nConfig struct {
	Dir         string `mapstructure:"dir"`
	DefaultLang string `mapstructure:"default_lang"`
}

// GetDBConnectionString returns PostgreSQL DSN based on config values.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
