package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	ERP       ERPConfig
	Sync      SyncConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	MigrationsPath  string
}

// RedisConfig holds Redis connection settings and the progress channel layout
type RedisConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Password        string
	DB              int
	ProgressChannel string        // pub/sub channel for progress events
	StatusKey       string        // key holding the last progress event
	StatusTTL       time.Duration // expiry of the status key
	LockKey         string        // key of the cross-process run lock
	LockTTL         time.Duration // upper bound on a run holding the lock
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ERPConfig holds the remote catalog API settings
type ERPConfig struct {
	BaseURL        string
	Token          string
	PageSize       int
	Timeout        time.Duration
	RateLimitRPS   float64 // requests per second, 0 disables limiting
	RateLimitBurst int
	Charset        string // utf-8, windows-1252 or iso-8859-1
}

// SyncConfig holds reconciliation batch sizes and policies
type SyncConfig struct {
	ProductChunkSize   int
	PriceCommitSize    int
	TouchChunkSize     int
	DeleteChunkSize    int
	PriceTolerance     string   // decimal string, e.g. "0.01"
	ProgressBuffer     int      // queued progress events before dropping
	AdminCustomerCodes []string // customer codes protected from synchronization
}

// Tolerance parses PriceTolerance
func (s *SyncConfig) Tolerance() (decimal.Decimal, error) {
	return decimal.NewFromString(s.PriceTolerance)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
	MetricsInterval   time.Duration // Export interval of the metric reader
}

// Load loads configuration from catalogsync.toml in the usual locations
// and environment variables.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from an explicit file, or from the default
// locations when path is empty.
// Priority (highest to lowest):
// 1. Environment variables with CATALOG_ prefix (e.g., CATALOG_ERP_TOKEN)
// 2. The TOML file
// 3. Built-in defaults
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("catalogsync")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/catalogsync")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			MigrationsPath:  v.GetString("database.migrations_path"),
		},
		Redis: RedisConfig{
			Enabled:         v.GetBool("redis.enabled"),
			Host:            v.GetString("redis.host"),
			Port:            v.GetInt("redis.port"),
			Password:        v.GetString("redis.password"),
			DB:              v.GetInt("redis.db"),
			ProgressChannel: v.GetString("redis.progress_channel"),
			StatusKey:       v.GetString("redis.status_key"),
			StatusTTL:       v.GetDuration("redis.status_ttl"),
			LockKey:         v.GetString("redis.lock_key"),
			LockTTL:         v.GetDuration("redis.lock_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		ERP: ERPConfig{
			BaseURL:        v.GetString("erp.base_url"),
			Token:          v.GetString("erp.token"),
			PageSize:       v.GetInt("erp.page_size"),
			Timeout:        v.GetDuration("erp.timeout"),
			RateLimitRPS:   v.GetFloat64("erp.rate_limit_rps"),
			RateLimitBurst: v.GetInt("erp.rate_limit_burst"),
			Charset:        v.GetString("erp.charset"),
		},
		Sync: SyncConfig{
			ProductChunkSize:   v.GetInt("sync.product_chunk_size"),
			PriceCommitSize:    v.GetInt("sync.price_commit_size"),
			TouchChunkSize:     v.GetInt("sync.touch_chunk_size"),
			DeleteChunkSize:    v.GetInt("sync.delete_chunk_size"),
			PriceTolerance:     v.GetString("sync.price_tolerance"),
			ProgressBuffer:     v.GetInt("sync.progress_buffer"),
			AdminCustomerCodes: v.GetStringSlice("sync.admin_customer_codes"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "catalogsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "b2bportal"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.ProgressChannel == "" {
		cfg.Redis.ProgressChannel = "catalogsync:progress"
	}
	if cfg.Redis.StatusKey == "" {
		cfg.Redis.StatusKey = "catalogsync:status"
	}
	if cfg.Redis.StatusTTL == 0 {
		cfg.Redis.StatusTTL = 24 * time.Hour
	}
	if cfg.Redis.LockKey == "" {
		cfg.Redis.LockKey = "catalogsync:lock"
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = 2 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.ERP.PageSize == 0 {
		cfg.ERP.PageSize = 500
	}
	if cfg.ERP.Timeout == 0 {
		cfg.ERP.Timeout = 30 * time.Second
	}
	if cfg.ERP.RateLimitBurst == 0 {
		cfg.ERP.RateLimitBurst = 1
	}
	if cfg.ERP.Charset == "" {
		cfg.ERP.Charset = "utf-8"
	}
	if cfg.Sync.ProductChunkSize == 0 {
		cfg.Sync.ProductChunkSize = 500
	}
	if cfg.Sync.PriceCommitSize == 0 {
		cfg.Sync.PriceCommitSize = 500
	}
	if cfg.Sync.TouchChunkSize == 0 {
		cfg.Sync.TouchChunkSize = 1000
	}
	if cfg.Sync.DeleteChunkSize == 0 {
		cfg.Sync.DeleteChunkSize = 1000
	}
	if cfg.Sync.PriceTolerance == "" {
		cfg.Sync.PriceTolerance = "0.01"
	}
	if cfg.Sync.ProgressBuffer == 0 {
		cfg.Sync.ProgressBuffer = 64
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "catalogsync"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.ERP.PageSize < 0 {
		return fmt.Errorf("erp.page_size cannot be negative")
	}
	if c.ERP.RateLimitRPS < 0 {
		return fmt.Errorf("erp.rate_limit_rps cannot be negative")
	}

	tol, err := c.Sync.Tolerance()
	if err != nil {
		return fmt.Errorf("sync.price_tolerance must be a decimal: %w", err)
	}
	if !tol.IsPositive() {
		return fmt.Errorf("sync.price_tolerance must be positive, got %s", tol)
	}
	for name, size := range map[string]int{
		"sync.product_chunk_size": c.Sync.ProductChunkSize,
		"sync.price_commit_size":  c.Sync.PriceCommitSize,
		"sync.touch_chunk_size":   c.Sync.TouchChunkSize,
		"sync.delete_chunk_size":  c.Sync.DeleteChunkSize,
	} {
		if size < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.ERP.Token == "" {
			return fmt.Errorf("erp.token is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
