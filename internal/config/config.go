package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	BaseCurrency string

	InvoicePrefix  string
	InvoiceDueDays int
	InvoiceTaxRate int64 // basis points, e.g. 750 = 7.5%
	PublicBaseURL  string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string

	Paystack    GatewayConfig
	Flutterwave GatewayConfig

	Sweep SweepConfig

	Email EmailConfig

	Storage StorageConfig

	RateFeedURL string
	RateTTL     time.Duration

	OtelEnabled  bool
	OTLPEndpoint string
	OTLPProtocol string
}

// GatewayConfig holds webhook credentials for one payment gateway.
type GatewayConfig struct {
	SecretKey     string
	WebhookSecret string
}

// SweepConfig controls the expiry sweeper.
type SweepConfig struct {
	Interval   time.Duration
	PendingTTL time.Duration
	LinkTTL    time.Duration
	LockKey    string
	LockTTL    time.Duration
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// StorageConfig holds document blob storage settings.
type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "kamisoft-billing"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		BaseCurrency: strings.ToUpper(getenv("BASE_CURRENCY", "USD")),

		InvoicePrefix:  getenv("INVOICE_PREFIX", "KMS"),
		InvoiceDueDays: getenvInt("INVOICE_DUE_DAYS", 14),
		InvoiceTaxRate: getenvInt64("INVOICE_TAX_RATE_BPS", 0),
		PublicBaseURL:  strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "kamisoft"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		Paystack: GatewayConfig{
			SecretKey:     strings.TrimSpace(getenv("PAYSTACK_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("PAYSTACK_WEBHOOK_SECRET", "")),
		},
		Flutterwave: GatewayConfig{
			SecretKey:     strings.TrimSpace(getenv("FLUTTERWAVE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("FLUTTERWAVE_WEBHOOK_SECRET", "")),
		},

		Sweep: SweepConfig{
			Interval:   getenvDuration("SWEEP_INTERVAL", 10*time.Minute),
			PendingTTL: getenvDuration("SWEEP_PENDING_TTL", 24*time.Hour),
			LinkTTL:    getenvDuration("SWEEP_LINK_TTL", time.Hour),
			LockKey:    getenv("SWEEP_LOCK_KEY", "kamisoft:sweep:lock"),
			LockTTL:    getenvDuration("SWEEP_LOCK_TTL", time.Minute),
		},

		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "billing@kamisoft.dev"),
		},

		Storage: StorageConfig{
			Endpoint:        getenv("STORAGE_ENDPOINT", ""),
			Region:          getenv("STORAGE_REGION", "auto"),
			AccessKeyID:     getenv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getenv("STORAGE_SECRET_ACCESS_KEY", ""),
			Bucket:          getenv("STORAGE_BUCKET", "kamisoft-invoices"),
			PublicBaseURL:   strings.TrimRight(getenv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
		},

		RateFeedURL: getenv("RATE_FEED_URL", ""),
		RateTTL:     getenvDuration("RATE_TTL", 15*time.Minute),

		OtelEnabled:  getenv("OTEL_ENABLED", "false") == "true",
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		OTLPProtocol: getenv("OTLP_PROTOCOL", "grpc"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
