package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Media
		Lending
		Maintenance
		Audit
		Tasks
		Auth
	}

	HTTP struct {
		Port         int32
		Host         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		DemoMode                 bool // read-only instance, see cmd/seed_demo
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // sqlite file
		DSN    string // postgres connection string
	}
	Media struct {
		Dir           string // root for covers and digital resource files
		MaxUploadSize int64
	}
	Lending struct {
		LoanDays   int
		FinePerDay int64
	}
	Maintenance struct {
		Enabled  bool
		Schedule string // Cron format: "0 1 * * *" = daily at 01:00
	}
	Audit struct {
		RetentionDays int
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int
		RateLimitWindow  time.Duration
		LockoutDuration  time.Duration
	}
)

func NewConfig() *Config {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("http_port", 8188)
	v.SetDefault("http_host", "0.0.0.0")
	v.SetDefault("http_read_timeout", "15s")
	v.SetDefault("http_write_timeout", "60s")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("demo_mode", false)
	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("media_dir", DefaultMediaDir)
	v.SetDefault("media_max_upload_size", 50<<20)

	v.SetDefault("lending_loan_days", DefaultLoanDays)
	v.SetDefault("lending_fine_per_day", DefaultFinePerDay)

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_schedule", "0 1 * * *")
	v.SetDefault("audit_retention_days", 90)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_token_expiry", "720h")
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_workers", 2)
	v.SetDefault("tasks_release_after", "15m")
	v.SetDefault("tasks_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port:         v.GetInt32("HTTP_PORT"),
			Host:         v.GetString("HTTP_HOST"),
			ReadTimeout:  v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("HTTP_WRITE_TIMEOUT"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			DemoMode:                 v.GetBool("DEMO_MODE"),
		},
		Database: Database{
			Driver: DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Media: Media{
			Dir:           v.GetString("MEDIA_DIR"),
			MaxUploadSize: v.GetInt64("MEDIA_MAX_UPLOAD_SIZE"),
		},
		Lending: Lending{
			LoanDays:   v.GetInt("LENDING_LOAN_DAYS"),
			FinePerDay: v.GetInt64("LENDING_FINE_PER_DAY"),
		},
		Maintenance: Maintenance{
			Enabled:  v.GetBool("MAINTENANCE_ENABLED"),
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASKS_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASKS_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASKS_CLEANUP_INTERVAL"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
	}
}
