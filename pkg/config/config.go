package config

import (
	"errors"
	"os"
	"path/filepath"
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
	DataDir   string

	Database DatabaseConfig
	Backup   BackupConfig
	Imports  ImportsConfig
	Cache    CacheConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// DatabaseConfig points at the local SQLite file.
type DatabaseConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// BackupConfig controls backup storage and restore validation.
type BackupConfig struct {
	Dir              string
	KeepDays         int
	MaxFileSizeBytes int64
}

// ImportsConfig controls roster CSV import limits and issue report downloads.
type ImportsConfig struct {
	Dir              string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
}

// CacheConfig toggles the optional Redis read cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.DataDir = expandHome(v.GetString("DATA_DIR"))

	cfg.Database = DatabaseConfig{
		Path:        fallbackPath(v.GetString("DB_PATH"), cfg.DataDir, "data.db"),
		BusyTimeout: parseDuration(v.GetString("DB_BUSY_TIMEOUT"), 5*time.Second),
	}

	maxBackupSize := v.GetInt64("RESTORE_MAX_FILE_SIZE")
	if maxBackupSize <= 0 {
		maxBackupSize = 50 * 1024 * 1024
	}
	keepDays := v.GetInt("BACKUP_KEEP_DAYS")
	if keepDays <= 0 {
		keepDays = 30
	}
	cfg.Backup = BackupConfig{
		Dir:              fallbackPath(v.GetString("BACKUP_DIR"), cfg.DataDir, "backups"),
		KeepDays:         keepDays,
		MaxFileSizeBytes: maxBackupSize,
	}

	maxImportSize := v.GetInt64("IMPORTS_MAX_FILE_SIZE")
	if maxImportSize <= 0 {
		maxImportSize = 2 * 1024 * 1024
	}
	cfg.Imports = ImportsConfig{
		Dir:              fallbackPath(v.GetString("IMPORTS_DIR"), cfg.DataDir, "imports"),
		SignedURLSecret:  v.GetString("IMPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("IMPORTS_SIGNED_URL_TTL"), time.Hour),
		MaxFileSizeBytes: maxImportSize,
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("DATA_DIR", "~/.coach_app")

	v.SetDefault("DB_PATH", "")
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")

	v.SetDefault("BACKUP_DIR", "")
	v.SetDefault("BACKUP_KEEP_DAYS", 30)
	v.SetDefault("RESTORE_MAX_FILE_SIZE", 50*1024*1024)

	v.SetDefault("IMPORTS_DIR", "")
	v.SetDefault("IMPORTS_SIGNED_URL_SECRET", "dev_imports_secret")
	v.SetDefault("IMPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("IMPORTS_MAX_FILE_SIZE", 2*1024*1024)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/")
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func fallbackPath(raw, dataDir, name string) string {
	if strings.TrimSpace(raw) != "" {
		return expandHome(raw)
	}
	return filepath.Join(dataDir, name)
}
