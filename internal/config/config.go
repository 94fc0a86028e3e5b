// internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Source   SourceConfig
	Minio    MinioConfig
	Drive    DriveConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	MaxUploadMB    int64
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConcurrency int64
}

type AppConfig struct {
	DataDir      string
	Timezone     string
	FallbackPath string
}

// SourceConfig selects where weighting and forecast tables come from.
type SourceConfig struct {
	Kind          string // local, minio, drive or postgres
	WeightsFile   string
	ForecastsFile string
	ProbeCron     string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsFile string
	FolderID        string
}

type CacheConfig struct {
	Backend       string // memory or redis
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
	MaxAgeSeconds int
}

var (
	once     sync.Once
	instance *Config
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER_MAX_UPLOAD_MB", 20)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "gab_flow")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONCURRENCY", 8)
	v.SetDefault("APP_DATA_DIR", "./data")
	v.SetDefault("APP_TIMEZONE", "Africa/Casablanca")
	v.SetDefault("APP_FALLBACK_PATH", "")
	v.SetDefault("SOURCE_KIND", "local")
	v.SetDefault("SOURCE_WEIGHTS_FILE", "ponderation_gab.xlsx")
	v.SetDefault("SOURCE_FORECASTS_FILE", "previsions.xlsx")
	v.SetDefault("SOURCE_PROBE_CRON", "@every 15m")
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "gab-reference")
	v.SetDefault("MINIO_PREFIX", "")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("DRIVE_CREDENTIALS_FILE", "")
	v.SetDefault("DRIVE_FOLDER_ID", "")
	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("CACHE_TTL_SECONDS", 0)
	v.SetDefault("CACHE_MAX_AGE_SECONDS", 0)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
}

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		SetDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance = FromViper(v)

		// The local source reads from the data directory
		if instance.Source.Kind == "local" {
			ensureDir(instance.App.DataDir)
		}
	})

	return instance
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("SERVER_LOG_LEVEL"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			MaxUploadMB:    v.GetInt64("SERVER_MAX_UPLOAD_MB"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			DBName:         v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxConcurrency: v.GetInt64("DB_MAX_CONCURRENCY"),
		},
		App: AppConfig{
			DataDir:      v.GetString("APP_DATA_DIR"),
			Timezone:     v.GetString("APP_TIMEZONE"),
			FallbackPath: v.GetString("APP_FALLBACK_PATH"),
		},
		Source: SourceConfig{
			Kind:          strings.ToLower(strings.TrimSpace(v.GetString("SOURCE_KIND"))),
			WeightsFile:   v.GetString("SOURCE_WEIGHTS_FILE"),
			ForecastsFile: v.GetString("SOURCE_FORECASTS_FILE"),
			ProbeCron:     strings.TrimSpace(v.GetString("SOURCE_PROBE_CRON")),
		},
		Minio: MinioConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			Prefix:    v.GetString("MINIO_PREFIX"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsFile: v.GetString("DRIVE_CREDENTIALS_FILE"),
			FolderID:        v.GetString("DRIVE_FOLDER_ID"),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(strings.TrimSpace(v.GetString("CACHE_BACKEND"))),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TTLSeconds:    v.GetInt("CACHE_TTL_SECONDS"),
			MaxAgeSeconds: v.GetInt("CACHE_MAX_AGE_SECONDS"),
		},
	}
}

// DSN returns the lib/pq connection string for the database.
func (c DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
