package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cordfriend.app/server/core/db"
)

type Config struct {
	OTel      OTelConfig
	Auth      AuthConfig
	Blob      BlobConfig
	Google    GoogleConfig
	WorkOS    WorkOSConfig
	RateLimit RateLimitConfig
	Env       string
	Port      string
	ClientURL string
	NodeID    int64
	DB        db.Config
}

type AuthConfig struct {
	JWTSecret       string
	CryptoSecretKey string // hex, 32 bytes once decoded
	SessionTTL      time.Duration
}

type BlobBackend string

const (
	BlobBackendGridFS BlobBackend = "gridfs"
	BlobBackendS3     BlobBackend = "s3"
)

type BlobConfig struct {
	Backend      BlobBackend
	GridFSBucket string
	S3           S3Config
}

type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string // Optional: MinIO or other S3-compatible endpoints
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type WorkOSConfig struct {
	APIKey      string
	ClientID    string
	RedirectURI string
}

// RateLimitConfig throttles login and signup attempts per client IP. It is
// disabled when RedisURL is empty.
type RateLimitConfig struct {
	RedisURL string
	Attempts int64
	Window   time.Duration
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Load loads configuration from environment variables.
// In development it first loads a .env file from the working directory when present.
func Load() (Config, error) {
	if getEnv("APP_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:       getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		ClientURL: getEnv("CLIENT_URL", "http://localhost:5173"),
		NodeID:    getEnvInt64("NODE_ID", 1),
		DB: db.Config{
			URI:          getEnv("MONGODB_CONNECTION_STRING", ""),
			Database:     getEnv("MONGODB_DATABASE", "cordfriendAI"),
			Timeout:      getEnvDuration("MONGODB_TIMEOUT", 60*time.Second),
			Transactions: getEnvBool("MONGODB_TRANSACTIONS", false),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET_KEY", ""),
			CryptoSecretKey: getEnv("CRYPTO_SECRET_KEY", ""),
			SessionTTL:      getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		},
		Blob: BlobConfig{
			Backend:      BlobBackend(strings.ToLower(getEnv("BLOB_BACKEND", string(BlobBackendGridFS)))),
			GridFSBucket: getEnv("GRIDFS_BUCKET", "bot_images"),
			S3: S3Config{
				Bucket:       getEnv("S3_BUCKET", ""),
				Region:       getEnv("S3_REGION", "us-east-1"),
				Endpoint:     getEnv("S3_ENDPOINT", ""),
				AccessKey:    getEnv("S3_ACCESS_KEY", ""),
				SecretKey:    getEnv("S3_SECRET_KEY", ""),
				UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),
			},
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/oauth2/callback/google"),
		},
		WorkOS: WorkOSConfig{
			APIKey:      getEnv("WORKOS_API_KEY", ""),
			ClientID:    getEnv("WORKOS_CLIENT_ID", ""),
			RedirectURI: getEnv("WORKOS_REDIRECT_URI", "http://localhost:8080/api/oauth2/callback/workos"),
		},
		RateLimit: RateLimitConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			Attempts: getEnvInt64("AUTH_RATE_LIMIT", 10),
			Window:   getEnvDuration("AUTH_RATE_WINDOW", 15*time.Minute),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "cordfriend-server"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.DB.URI == "" {
		return fmt.Errorf("MONGODB_CONNECTION_STRING is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	key, err := hex.DecodeString(c.Auth.CryptoSecretKey)
	if err != nil || len(key) != 32 {
		return fmt.Errorf("CRYPTO_SECRET_KEY must be 64 hex characters (32 bytes)")
	}
	switch c.Blob.Backend {
	case BlobBackendGridFS:
	case BlobBackendS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.Blob.Backend)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RateLimitConfig) Enabled() bool {
	return c.RedisURL != "" && c.Attempts > 0
}

func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c WorkOSConfig) Enabled() bool {
	return c.APIKey != "" && c.ClientID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
