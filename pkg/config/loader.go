// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the YAML file for APP_ENV and environment variables,
// validates it, and returns the resulting Config along with the viper instance backing it.
func Load() (*Config, *viper.Viper, error) {
	// missing env files are fine; the environment may already be populated
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))

	cfg, err := LoadFrom(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// LoadFrom reads, unmarshals and validates the config file already set on v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("bot.token", "BOT_TOKEN")
	_ = v.BindEnv("sentry.dsn", "SENTRY_DSN")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return decode(v)
}

// WatchRoles re-decodes the configuration whenever the file changes and passes the
// fresh role settings to apply. Invalid edits are reported through onError and ignored.
func WatchRoles(v *viper.Viper, apply func(RolesConfig), onError func(error)) {
	if v == nil || apply == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}

		apply(cfg.Roles)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("server.addr", ":9090")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "vacationData.json")
	v.SetDefault("store.redis_key", "leave:requests")
	v.SetDefault("pending.backend", "memory")
	v.SetDefault("pending.ttl", 30*time.Minute)
	v.SetDefault("pending.sweep_interval", 5*time.Minute)
	v.SetDefault("roles.source", "static")
	v.SetDefault("roles.cache_ttl", 5*time.Minute)
	v.SetDefault("rate_limit.limit", 20)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("i18n.dir", "internal/i18n/locales")
	v.SetDefault("i18n.default_lang", "en")
}
