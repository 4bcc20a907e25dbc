package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

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
	DBConnMaxIdleTime int

	Gateway    GatewayConfig
	Generation GenerationConfig
	Purchase   PurchaseConfig
}

// GatewayConfig configures the payment gateway client.
type GatewayConfig struct {
	BaseURL      string
	ShopID       string
	SecretKey    string
	ReceiptEmail string
	Timeout      time.Duration
}

// GenerationConfig configures the upstream text-generation client.
type GenerationConfig struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
}

// PurchaseConfig bounds the payment confirmation poller.
type PurchaseConfig struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	ResumeMaxAge time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "creditgate"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:     getenv("DATABASE_TYPE", "sqlite"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "creditgate"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Gateway: GatewayConfig{
			BaseURL:      getenv("GATEWAY_BASE_URL", "https://api.yookassa.ru/v3"),
			ShopID:       strings.TrimSpace(getenv("GATEWAY_SHOP_ID", "")),
			SecretKey:    strings.TrimSpace(getenv("GATEWAY_SECRET_KEY", "")),
			ReceiptEmail: getenv("GATEWAY_RECEIPT_EMAIL", "payments@creditgate.local"),
			Timeout:      getenvDuration("GATEWAY_TIMEOUT", 15*time.Second),
		},
		Generation: GenerationConfig{
			BaseURL:      getenv("GENERATION_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			APIKey:       strings.TrimSpace(getenv("GENERATION_API_KEY", "")),
			DefaultModel: getenv("GENERATION_DEFAULT_MODEL", "gemini-2.0-flash"),
			Timeout:      getenvDuration("GENERATION_TIMEOUT", 60*time.Second),
		},
		Purchase: PurchaseConfig{
			PollInterval: getenvDuration("PURCHASE_POLL_INTERVAL", 3*time.Second),
			PollTimeout:  getenvDuration("PURCHASE_POLL_TIMEOUT", 5*time.Minute),
			ResumeMaxAge: getenvDuration("PURCHASE_RESUME_MAX_AGE", 10*time.Minute),
		},
	}

	return cfg
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
