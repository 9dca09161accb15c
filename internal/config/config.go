package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Server      ServerConfig      `mapstructure:"server"`
}

type GatewayConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RetryAttempts uint          `mapstructure:"retry_attempts" validate:"lte=10"`
}

type CacheConfig struct {
	DefaultTTL   time.Duration `mapstructure:"default_ttl" validate:"gt=0"`
	TTLOverrides []TTLOverride `mapstructure:"ttl_overrides" validate:"dive"`
}

// TTLOverride is a list item rather than a map entry because viper lowercases map keys.
type TTLOverride struct {
	Code string        `mapstructure:"code" validate:"dictcode"`
	TTL  time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// Overrides returns the overrides keyed by dictionary code.
func (c CacheConfig) Overrides() map[string]time.Duration {
	overrides := make(map[string]time.Duration, len(c.TTLOverrides))
	for _, override := range c.TTLOverrides {
		overrides[override.Code] = override.TTL
	}
	return overrides
}

type PersistenceBackend string

const (
	PersistenceBackendFile   PersistenceBackend = "file"
	PersistenceBackendMySQL  PersistenceBackend = "mysql"
	PersistenceBackendSQLite PersistenceBackend = "sqlite"
)

var AllPersistenceBackends = []PersistenceBackend{
	PersistenceBackendFile,
	PersistenceBackendMySQL,
	PersistenceBackendSQLite,
}

type PersistenceConfig struct {
	Backend     PersistenceBackend `mapstructure:"backend" validate:"oneof=file mysql sqlite"`
	StorageName string             `mapstructure:"storage_name" validate:"required"`
	Directory   string             `mapstructure:"directory" validate:"required_if=Backend file"`
	SQLitePath  string             `mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	AllowedOrigin   string        `mapstructure:"allowed_origin" validate:"omitempty,url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/dictcache")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("gateway.retry_attempts", 3)
	v.SetDefault("cache.default_ttl", "30m")
	v.SetDefault("persistence.backend", string(PersistenceBackendFile))
	v.SetDefault("persistence.storage_name", "dict-cache")
	v.SetDefault("persistence.directory", filepath.Join("cache", "dictionaries"))
	v.SetDefault("persistence.sqlite_path", filepath.Join("cache", "dictionaries.db"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "local")
	v.SetDefault("database.username", "user")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origin", "http://localhost:3000")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Environment variables take precedence over the config file
	if err := v.BindEnv("gateway.base_url", "DICT_API_BASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DICT_API_BASE_URL environment variable: %w", err)
	}
	if err := v.BindEnv("gateway.token", "DICT_API_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind DICT_API_TOKEN environment variable: %w", err)
	}
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
