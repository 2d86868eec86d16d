package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	CORS        CORSConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Attendance  AttendanceConfig
	Holidays    HolidayConfig
	Adjustments AdjustmentQueueConfig
	Exports     ExportConfig
	Metrics     MetricsConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// AttendanceConfig tunes grace windows and the absence sweep cadence.
type AttendanceConfig struct {
	Timezone      string
	LateGrace     time.Duration
	AbsentGrace   time.Duration
	SweepEnabled  bool
	SweepInterval time.Duration
}

// HolidayConfig controls the business-day calendar.
type HolidayConfig struct {
	ExcludeWeekends bool
	CacheTTL        time.Duration
	SeedDefaults    bool
	ICSURL          string
	SyncInterval    time.Duration
}

// AdjustmentQueueConfig sizes the enrollment adjustment delivery queue.
type AdjustmentQueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// ExportConfig controls published attendance sheets and their download links.
type ExportConfig struct {
	Dir           string
	SigningSecret string
	LinkTTL       time.Duration
	Retention     time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// Location resolves the academy timezone, falling back to UTC.
func (c AttendanceConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		RunMigrations: v.GetBool("DB_RUN_MIGRATIONS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Attendance = AttendanceConfig{
		Timezone:      v.GetString("ACADEMY_TIMEZONE"),
		LateGrace:     parseDuration(v.GetString("ATTENDANCE_LATE_GRACE"), 10*time.Minute),
		AbsentGrace:   parseDuration(v.GetString("ATTENDANCE_ABSENT_GRACE"), 20*time.Minute),
		SweepEnabled:  v.GetBool("ENABLE_ABSENCE_SWEEP"),
		SweepInterval: parseDuration(v.GetString("ABSENCE_SWEEP_INTERVAL"), 10*time.Minute),
	}

	cfg.Holidays = HolidayConfig{
		ExcludeWeekends: v.GetBool("HOLIDAY_EXCLUDE_WEEKENDS"),
		CacheTTL:        parseDuration(v.GetString("HOLIDAY_CACHE_TTL"), 24*time.Hour),
		SeedDefaults:    v.GetBool("HOLIDAY_SEED_DEFAULTS"),
		ICSURL:          v.GetString("HOLIDAY_ICS_URL"),
		SyncInterval:    parseDuration(v.GetString("HOLIDAY_SYNC_INTERVAL"), 24*time.Hour),
	}

	cfg.Adjustments = AdjustmentQueueConfig{
		Workers:    v.GetInt("ADJUSTMENT_WORKERS"),
		BufferSize: v.GetInt("ADJUSTMENT_BUFFER_SIZE"),
		MaxRetries: v.GetInt("ADJUSTMENT_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("ADJUSTMENT_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Exports = ExportConfig{
		Dir:           v.GetString("EXPORT_DIR"),
		SigningSecret: v.GetString("EXPORT_SIGNING_SECRET"),
		LinkTTL:       parseDuration(v.GetString("EXPORT_LINK_TTL"), time.Hour),
		Retention:     parseDuration(v.GetString("EXPORT_RETENTION"), 7*24*time.Hour),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("ALLOWED_ORIGINS", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_RUN_MIGRATIONS", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ACADEMY_TIMEZONE", "Asia/Seoul")
	v.SetDefault("ATTENDANCE_LATE_GRACE", "10m")
	v.SetDefault("ATTENDANCE_ABSENT_GRACE", "20m")
	v.SetDefault("ENABLE_ABSENCE_SWEEP", true)
	v.SetDefault("ABSENCE_SWEEP_INTERVAL", "10m")

	v.SetDefault("HOLIDAY_EXCLUDE_WEEKENDS", true)
	v.SetDefault("HOLIDAY_CACHE_TTL", "24h")
	v.SetDefault("HOLIDAY_SEED_DEFAULTS", true)
	v.SetDefault("HOLIDAY_ICS_URL", "")
	v.SetDefault("HOLIDAY_SYNC_INTERVAL", "24h")

	v.SetDefault("ADJUSTMENT_WORKERS", 2)
	v.SetDefault("ADJUSTMENT_BUFFER_SIZE", 64)
	v.SetDefault("ADJUSTMENT_MAX_RETRIES", 5)
	v.SetDefault("ADJUSTMENT_RETRY_DELAY", "2s")

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_SIGNING_SECRET", "")
	v.SetDefault("EXPORT_LINK_TTL", "1h")
	v.SetDefault("EXPORT_RETENTION", "168h")

	v.SetDefault("ENABLE_METRICS", true)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
