package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Query    QueryConfig    `mapstructure:"query"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required,numeric"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
	// RateLimit is the number of search requests allowed per minute and client.
	RateLimit int `mapstructure:"rate_limit" validate:"gte=0"`
	// TrustedProxies may set forwarding headers; none are trusted by default.
	TrustedProxies []string `mapstructure:"trusted_proxies" validate:"dive,ip|cidr"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
	Migrate  bool   `mapstructure:"migrate"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

func (j JWTConfig) ExpirationDuration() time.Duration {
	d, err := time.ParseDuration(j.Expiration)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

type AuthConfig struct {
	// AdminKeyHash is the bcrypt hash of the key allowed to mint API keys.
	AdminKeyHash string `mapstructure:"admin_key_hash"`
}

type QueryConfig struct {
	MaxPageSize     int    `mapstructure:"max_page_size" validate:"gte=1"`
	DefaultPageSize int    `mapstructure:"default_page_size" validate:"gte=1,ltefield=MaxPageSize"`
	DefaultOrder    string `mapstructure:"default_order" validate:"oneof=asc ascending desc descending"`
	// Policy is "strict" or "lenient" handling of criteria that cannot be applied.
	Policy          string `mapstructure:"policy" validate:"oneof=strict lenient"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

var envBindings = map[string]string{
	"server.port":             "PORT",
	"server.mode":             "GIN_MODE",
	"server.rate_limit":       "RATE_LIMIT",
	"server.trusted_proxies":  "TRUSTED_PROXIES",
	"database.host":           "DB_HOST",
	"database.port":           "DB_PORT",
	"database.user":           "DB_USER",
	"database.password":       "DB_PASSWORD",
	"database.name":           "DB_NAME",
	"database.sslmode":        "DB_SSLMODE",
	"database.migrate":        "DB_MIGRATE",
	"jwt.secret":              "JWT_SECRET",
	"jwt.expiration":          "JWT_EXPIRATION",
	"auth.admin_key_hash":     "ADMIN_KEY_HASH",
	"query.max_page_size":     "QUERY_MAX_PAGE_SIZE",
	"query.default_page_size": "QUERY_DEFAULT_PAGE_SIZE",
	"query.default_order":     "QUERY_DEFAULT_ORDER",
	"query.policy":            "QUERY_POLICY",
	"log.level":               "LOG_LEVEL",
	"log.format":              "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "baseplate")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrate", true)
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("query.max_page_size", 50)
	v.SetDefault("query.default_page_size", 1)
	v.SetDefault("query.default_order", "ascending")
	v.SetDefault("query.policy", "strict")
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "json")
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
