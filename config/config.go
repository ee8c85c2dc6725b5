// Package config loads settings from the environment and opens the
// database and attachment store the server runs on.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yeremiapane/workshop-app/utils"
)

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	RateLimit float64
	RateBurst int

	AllowedOrigin  string
	MetricsEnabled bool

	DBDriver string
	DBDSN    string

	StorageDriver string
	UploadDir     string
	PublicBaseURL string
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3UseSSL      bool
	S3PublicURL   string

	SweepInterval time.Duration
	SweepGrace    time.Duration
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Println("Warning: .env file not found, using environment only")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT", 20)
	v.SetDefault("RATE_BURST", 40)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_DSN", "root:@tcp(127.0.0.1:3306)/workshop?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "public/uploads")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("S3_REGION", "ap-south-1")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("SWEEP_INTERVAL", "10m")
	v.SetDefault("SWEEP_GRACE", "1h")

	cfg := &Config{
		Port:           v.GetString("PORT"),
		GinMode:        v.GetString("GIN_MODE"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		RateLimit:      v.GetFloat64("RATE_LIMIT"),
		RateBurst:      v.GetInt("RATE_BURST"),
		AllowedOrigin:  v.GetString("CORS_ORIGIN"),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		DBDriver:       strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:          v.GetString("DB_DSN"),
		StorageDriver:  strings.ToLower(v.GetString("STORAGE_DRIVER")),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		PublicBaseURL:  strings.TrimSuffix(v.GetString("PUBLIC_BASE_URL"), "/"),
		S3Endpoint:     v.GetString("S3_ENDPOINT"),
		S3Region:       v.GetString("S3_REGION"),
		S3Bucket:       v.GetString("S3_BUCKET"),
		S3AccessKey:    v.GetString("S3_ACCESS_KEY_ID"),
		S3SecretKey:    v.GetString("S3_SECRET_ACCESS_KEY"),
		S3UseSSL:       v.GetBool("S3_USE_SSL"),
		S3PublicURL:    v.GetString("S3_PUBLIC_URL"),
		SweepInterval:  v.GetDuration("SWEEP_INTERVAL"),
		SweepGrace:     v.GetDuration("SWEEP_GRACE"),
	}
	return cfg, nil
}
