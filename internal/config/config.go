package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret is only accepted when Env is "development".
const DefaultJWTSecret = "supersecretkey"

type Config struct {
	Env           string          `yaml:"env"`
	Addr          string          `yaml:"addr"`
	JWTSecret     string          `yaml:"jwt_secret"`
	// CSRFKey signs page form tokens; empty derives it from JWTSecret.
	CSRFKey       string          `yaml:"csrf_key"`
	APITimeout    time.Duration   `yaml:"timeout"`
	TokenDuration time.Duration   `yaml:"token_duration"`
	CookieSecure  bool            `yaml:"cookie_secure"`
	Database      DatabaseConfig  `yaml:"database"`
	Redis         RedisConfig     `yaml:"redis"`
	Dashboard     DashboardConfig `yaml:"dashboard"`
	Admin         AdminConfig     `yaml:"admin"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "pgx".
	Driver         string `yaml:"driver"`
	DSN            string `yaml:"dsn"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
	Seed           bool   `yaml:"seed"`
}

// RedisConfig enables the shared profile cache and token revocation list when Addr is set.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	ProfileTTL time.Duration `yaml:"profile_ttl"`
}

type DashboardConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
	BatchCapacity  int `yaml:"batch_capacity"`
}

// AdminConfig is the account provisioned by scripts/db_init.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
	Mobile   string `yaml:"mobile"`
}

// LoadConfig builds a Config from defaults, a .env file, SWT_* environment
// variables and finally the YAML file at path, in that order of precedence.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Env:           cast.ToString(getOrReturnDefault("SWT_ENV", "development")),
		Addr:          cast.ToString(getOrReturnDefault("SWT_ADDR", ":8080")),
		JWTSecret:     cast.ToString(getOrReturnDefault("SWT_JWT_SECRET", DefaultJWTSecret)),
		CSRFKey:       cast.ToString(getOrReturnDefault("SWT_CSRF_KEY", "")),
		APITimeout:    cast.ToDuration(getOrReturnDefault("SWT_TIMEOUT", 15*time.Second)),
		TokenDuration: cast.ToDuration(getOrReturnDefault("SWT_TOKEN_DURATION", 24*time.Hour)),
		CookieSecure:  cast.ToBool(getOrReturnDefault("SWT_COOKIE_SECURE", false)),
		Database: DatabaseConfig{
			Driver:         cast.ToString(getOrReturnDefault("SWT_DATABASE_DRIVER", "sqlite")),
			DSN:            cast.ToString(getOrReturnDefault("SWT_DATABASE_DSN", "southwheels.db")),
			MigrateOnStart: cast.ToBool(getOrReturnDefault("SWT_MIGRATE_ON_START", true)),
			Seed:           cast.ToBool(getOrReturnDefault("SWT_SEED", true)),
		},
		Redis: RedisConfig{
			Addr:       cast.ToString(getOrReturnDefault("SWT_REDIS_ADDR", "")),
			Password:   cast.ToString(getOrReturnDefault("SWT_REDIS_PASSWORD", "")),
			DB:         cast.ToInt(getOrReturnDefault("SWT_REDIS_DB", 0)),
			ProfileTTL: cast.ToDuration(getOrReturnDefault("SWT_PROFILE_TTL", 5*time.Minute)),
		},
		Dashboard: DashboardConfig{
			MaxConcurrency: cast.ToInt(getOrReturnDefault("SWT_DASHBOARD_MAX_CONCURRENCY", 5)),
			BatchCapacity:  cast.ToInt(getOrReturnDefault("SWT_DASHBOARD_BATCH_CAPACITY", 100)),
		},
		Admin: AdminConfig{
			Email:    cast.ToString(getOrReturnDefault("SWT_ADMIN_EMAIL", "")),
			Password: cast.ToString(getOrReturnDefault("SWT_ADMIN_PASSWORD", "")),
			FullName: cast.ToString(getOrReturnDefault("SWT_ADMIN_NAME", "Administrator")),
			Mobile:   cast.ToString(getOrReturnDefault("SWT_ADMIN_MOBILE", "")),
		},
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the config runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Validate checks required settings and fills zero values with defaults.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: jwt_secret is required")
	}
	if c.JWTSecret == DefaultJWTSecret && !c.IsDevelopment() {
		return errors.New("config: insecure default jwt_secret outside development")
	}

	switch c.Database.Driver {
	case "", "sqlite":
		c.Database.Driver = "sqlite"
	case "pgx", "postgres":
		c.Database.Driver = "pgx"
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}

	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = 24 * time.Hour
	}
	if c.Redis.ProfileTTL <= 0 {
		c.Redis.ProfileTTL = 5 * time.Minute
	}
	if c.Dashboard.MaxConcurrency <= 0 {
		c.Dashboard.MaxConcurrency = 5
	}
	if c.Dashboard.BatchCapacity <= 0 {
		c.Dashboard.BatchCapacity = 100
	}
	return nil
}

func getOrReturnDefault(key string, defaultValue any) any {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
