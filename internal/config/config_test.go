package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/garnizeh/southwheels/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Env:           "production",
		Addr:          ":8080",
		JWTSecret:     "strongsecret",
		APITimeout:    5 * time.Second,
		TokenDuration: time.Hour,
		Database:      config.DatabaseConfig{Driver: "sqlite", DSN: "test.db"},
	}
}

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = config.DefaultJWTSecret

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "Development"
	cfg.JWTSecret = config.DefaultJWTSecret

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "sqlite"},
		{in: "sqlite", want: "sqlite"},
		{in: "postgres", want: "pgx"},
		{in: "pgx", want: "pgx"},
		{in: "mysql", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.Driver = tt.in
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for driver %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if cfg.Database.Driver != tt.want {
				t.Fatalf("driver = %q, want %q", cfg.Database.Driver, tt.want)
			}
		})
	}
}

func TestValidate_DefaultsPopulated(t *testing.T) {
	cfg := validConfig()
	cfg.APITimeout = 0
	cfg.TokenDuration = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}
	if cfg.Dashboard.MaxConcurrency != 5 {
		t.Fatalf("expected dashboard max concurrency default 5, got %d", cfg.Dashboard.MaxConcurrency)
	}
	if cfg.Dashboard.BatchCapacity <= 0 {
		t.Fatalf("expected dashboard batch capacity default")
	}
	if cfg.APITimeout != 15*time.Second || cfg.TokenDuration != 24*time.Hour {
		t.Fatalf("unexpected duration defaults: %v %v", cfg.APITimeout, cfg.TokenDuration)
	}
	if cfg.Redis.ProfileTTL <= 0 {
		t.Fatalf("expected profile ttl default")
	}
}

func TestValidate_MissingDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail without dsn")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"SWT_ADDR", "SWT_JWT_SECRET", "SWT_DATABASE_DSN", "SWT_ENV", "SWT_DASHBOARD_MAX_CONCURRENCY"} {
		t.Setenv(k, "")
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error for empty path: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":8080")
	}
	if cfg.JWTSecret != config.DefaultJWTSecret {
		t.Fatalf("unexpected JWTSecret: got %q", cfg.JWTSecret)
	}
	if cfg.Database.DSN != "southwheels.db" || cfg.Database.Driver != "sqlite" {
		t.Fatalf("unexpected Database: %+v", cfg.Database)
	}
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("unexpected APITimeout: got %v want %v", cfg.APITimeout, 15*time.Second)
	}
	if cfg.Dashboard.MaxConcurrency != 5 {
		t.Fatalf("unexpected MaxConcurrency: %d", cfg.Dashboard.MaxConcurrency)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SWT_ADDR", ":7070")
	t.Setenv("SWT_TOKEN_DURATION", "90m")
	t.Setenv("SWT_DASHBOARD_MAX_CONCURRENCY", "8")
	t.Setenv("SWT_COOKIE_SECURE", "true")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("unexpected Addr %q", cfg.Addr)
	}
	if cfg.TokenDuration != 90*time.Minute {
		t.Fatalf("unexpected TokenDuration %v", cfg.TokenDuration)
	}
	if cfg.Dashboard.MaxConcurrency != 8 {
		t.Fatalf("unexpected MaxConcurrency %d", cfg.Dashboard.MaxConcurrency)
	}
	if !cfg.CookieSecure {
		t.Fatalf("expected CookieSecure from env")
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9090\"\njwt_secret: \"filekey\"\ntimeout: \"30s\"\ntoken_duration: \"2h\"\n" +
		"database:\n  driver: pgx\n  dsn: \"postgres://localhost/swt\"\n" +
		"redis:\n  addr: \"localhost:6379\"\n  profile_ttl: \"1m\"\n" +
		"dashboard:\n  max_concurrency: 3\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error for file: %v", err)
	}

	if cfg.Addr != ":9090" || cfg.JWTSecret != "filekey" {
		t.Fatalf("unexpected Addr/JWTSecret: %q %q", cfg.Addr, cfg.JWTSecret)
	}
	if cfg.Database.Driver != "pgx" || cfg.Database.DSN != "postgres://localhost/swt" {
		t.Fatalf("unexpected Database: %+v", cfg.Database)
	}
	if cfg.APITimeout != 30*time.Second || cfg.TokenDuration != 2*time.Hour {
		t.Fatalf("unexpected durations: %v %v", cfg.APITimeout, cfg.TokenDuration)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.ProfileTTL != time.Minute {
		t.Fatalf("unexpected Redis: %+v", cfg.Redis)
	}
	if cfg.Dashboard.MaxConcurrency != 3 {
		t.Fatalf("unexpected MaxConcurrency %d", cfg.Dashboard.MaxConcurrency)
	}
}

func TestLoadConfig_BadPath(t *testing.T) {
	if _, err := config.LoadConfig("/path/that/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent path, got nil")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("addr: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}

	if _, err := config.LoadConfig(path); err == nil {
		t.Fatalf("expected YAML decode error, got nil")
	}
}
