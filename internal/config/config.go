package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	R2        R2Config
	Compose   ComposeConfig
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	ComposePerHour int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// ComposeConfig controls the composition pipeline: subprocess binaries,
// scratch storage, encode settings, and worker concurrency.
type ComposeConfig struct {
	FFmpegBin      string
	FFprobeBin     string
	ScratchDir     string
	Preset         string
	CRF            int
	ThumbnailWidth int
	FetchTimeout   int // seconds
	WebhookTimeout int // seconds
	Concurrency    int
}

type GatewayConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("ratelimit.compose_per_hour", "RATELIMIT_COMPOSE_PER_HOUR")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("compose.ffmpeg_bin", "FFMPEG_BIN")
	_ = viper.BindEnv("compose.ffprobe_bin", "FFPROBE_BIN")
	_ = viper.BindEnv("compose.scratch_dir", "COMPOSE_SCRATCH_DIR")
	_ = viper.BindEnv("compose.preset", "COMPOSE_PRESET")
	_ = viper.BindEnv("compose.crf", "COMPOSE_CRF")
	_ = viper.BindEnv("compose.thumbnail_width", "COMPOSE_THUMBNAIL_WIDTH")
	_ = viper.BindEnv("compose.fetch_timeout", "COMPOSE_FETCH_TIMEOUT")
	_ = viper.BindEnv("compose.webhook_timeout", "COMPOSE_WEBHOOK_TIMEOUT")
	_ = viper.BindEnv("compose.concurrency", "COMPOSE_CONCURRENCY")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("ratelimit.compose_per_hour", 10)

	// Compose defaults
	viper.SetDefault("compose.ffmpeg_bin", "ffmpeg")
	viper.SetDefault("compose.ffprobe_bin", "ffprobe")
	viper.SetDefault("compose.scratch_dir", os.TempDir())
	viper.SetDefault("compose.preset", "fast")
	viper.SetDefault("compose.crf", 22)
	viper.SetDefault("compose.thumbnail_width", 640)
	viper.SetDefault("compose.fetch_timeout", 300)
	viper.SetDefault("compose.webhook_timeout", 10)
	viper.SetDefault("compose.concurrency", 4)

	// Gateway defaults
	viper.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			ComposePerHour: viper.GetInt("ratelimit.compose_per_hour"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Compose: ComposeConfig{
			FFmpegBin:      viper.GetString("compose.ffmpeg_bin"),
			FFprobeBin:     viper.GetString("compose.ffprobe_bin"),
			ScratchDir:     viper.GetString("compose.scratch_dir"),
			Preset:         viper.GetString("compose.preset"),
			CRF:            viper.GetInt("compose.crf"),
			ThumbnailWidth: viper.GetInt("compose.thumbnail_width"),
			FetchTimeout:   viper.GetInt("compose.fetch_timeout"),
			WebhookTimeout: viper.GetInt("compose.webhook_timeout"),
			Concurrency:    viper.GetInt("compose.concurrency"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
	}

	return cfg, nil
}
