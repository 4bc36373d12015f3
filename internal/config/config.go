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
	Gateway   GatewayConfig
	Storage   StorageConfig
	Encoder   EncoderConfig
	Catalog   CatalogConfig
	Assembly  AssemblyConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	AssemblyPerHour int
	StatusPerMin    int
}

type GatewayConfig struct {
	Enabled bool
}

// StorageConfig selects where input assets and finished videos live:
// "r2" for S3-compatible object storage, "local" for an on-disk store.
type StorageConfig struct {
	Backend  string
	LocalDir string
	R2       R2Config
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// EncoderConfig selects the encode engine: "ffmpeg" runs the local CLI,
// "remote" drives an encoder microservice over HTTP.
type EncoderConfig struct {
	Mode       string
	FFmpegBin  string
	ServiceURL string
	Timeout    int // seconds, per HTTP call to the remote encoder
}

type CatalogConfig struct {
	SoundtracksPath string
	FiltersPath     string
}

type AssemblyConfig struct {
	WorkspaceRoot  string
	RunTimeout     int // seconds, global deadline per run
	MaxUploadBytes int64
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
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	_ = viper.BindEnv("storage.backend", "STORAGE_BACKEND")
	_ = viper.BindEnv("storage.local_dir", "STORAGE_LOCAL_DIR")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("encoder.mode", "ENCODER_MODE")
	_ = viper.BindEnv("encoder.ffmpeg_bin", "FFMPEG_BIN")
	_ = viper.BindEnv("encoder.service_url", "ENCODER_SERVICE_URL")
	_ = viper.BindEnv("encoder.timeout", "ENCODER_TIMEOUT")
	_ = viper.BindEnv("catalog.soundtracks_path", "CATALOG_SOUNDTRACKS_PATH")
	_ = viper.BindEnv("catalog.filters_path", "CATALOG_FILTERS_PATH")
	_ = viper.BindEnv("assembly.workspace_root", "ASSEMBLY_WORKSPACE_ROOT")
	_ = viper.BindEnv("assembly.run_timeout", "ASSEMBLY_RUN_TIMEOUT")
	_ = viper.BindEnv("assembly.max_upload_bytes", "ASSEMBLY_MAX_UPLOAD_BYTES")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.assembly_per_hour", 5)
	viper.SetDefault("ratelimit.status_per_min", 120)
	viper.SetDefault("gateway.enabled", false)

	// Storage defaults
	viper.SetDefault("storage.backend", "local")
	viper.SetDefault("storage.local_dir", "./data/storage")

	// Encoder defaults
	viper.SetDefault("encoder.mode", "ffmpeg")
	viper.SetDefault("encoder.ffmpeg_bin", "ffmpeg")
	viper.SetDefault("encoder.service_url", "http://localhost:8084")
	viper.SetDefault("encoder.timeout", 120)

	// Catalog defaults
	viper.SetDefault("catalog.soundtracks_path", "./catalogs/soundtracks.json")
	viper.SetDefault("catalog.filters_path", "./catalogs/filters.json")

	// Assembly defaults
	viper.SetDefault("assembly.workspace_root", "./data/workspaces")
	viper.SetDefault("assembly.run_timeout", 600)
	viper.SetDefault("assembly.max_upload_bytes", 10*1024*1024)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			AssemblyPerHour: viper.GetInt("ratelimit.assembly_per_hour"),
			StatusPerMin:    viper.GetInt("ratelimit.status_per_min"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
		Storage: StorageConfig{
			Backend:  viper.GetString("storage.backend"),
			LocalDir: viper.GetString("storage.local_dir"),
			R2: R2Config{
				AccountID:       viper.GetString("r2.account_id"),
				AccessKeyID:     viper.GetString("r2.access_key_id"),
				SecretAccessKey: viper.GetString("r2.secret_access_key"),
				BucketName:      viper.GetString("r2.bucket_name"),
				PublicURL:       viper.GetString("r2.public_url"),
			},
		},
		Encoder: EncoderConfig{
			Mode:       viper.GetString("encoder.mode"),
			FFmpegBin:  viper.GetString("encoder.ffmpeg_bin"),
			ServiceURL: viper.GetString("encoder.service_url"),
			Timeout:    viper.GetInt("encoder.timeout"),
		},
		Catalog: CatalogConfig{
			SoundtracksPath: viper.GetString("catalog.soundtracks_path"),
			FiltersPath:     viper.GetString("catalog.filters_path"),
		},
		Assembly: AssemblyConfig{
			WorkspaceRoot:  viper.GetString("assembly.workspace_root"),
			RunTimeout:     viper.GetInt("assembly.run_timeout"),
			MaxUploadBytes: viper.GetInt64("assembly.max_upload_bytes"),
		},
	}

	return cfg, nil
}
