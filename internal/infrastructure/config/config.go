package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/pkg/postgres"
)

type KafkaConfig struct {
	Brokers []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PartnerConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	RatePerSec  float64
	BurstSize   int
}

type PolicyConfig struct {
	LateFee       decimal.Decimal
	IdealTurnover decimal.Decimal
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type Config struct {
	GRPCPort      int
	HTTPPort      int
	DB            postgres.Config
	MigrationsURL string
	Kafka         KafkaConfig
	Redis         RedisConfig
	Partner       PartnerConfig
	Policy        PolicyConfig
	TLS           TLSConfig
	WebhookSecret string
	JWTSecret     string
	JWTIssuer     string
	LogLevel      string
	LogFormat     string
	OTLPEndpoint  string
	ServiceName   string
}

// Validate panics on missing secrets: the service must not come up half
// configured.
func (c Config) Validate() {
	if c.DB.Password == "" {
		panic("DB_PASSWORD environment variable is required")
	}
	if c.WebhookSecret == "" {
		panic("WEBHOOK_SECRET environment variable is required")
	}
	if c.JWTSecret == "" {
		panic("JWT_SECRET environment variable is required")
	}
}

func Load() Config {
	return Config{
		GRPCPort: getEnvInt("GRPC_PORT", 9090),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		DB: postgres.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "lending"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "lending_engine"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
			AppName:  getEnv("SERVICE_NAME", "lending-engine"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		MigrationsURL: getEnv("MIGRATIONS_URL", "file://internal/infrastructure/persistence/postgres/migrations"),
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Partner: PartnerConfig{
			BaseURL:    getEnv("PARTNER_BASE_URL", "http://localhost:9700"),
			APIKey:     getEnv("PARTNER_API_KEY", ""),
			Timeout:    getEnvDuration("PARTNER_TIMEOUT", 10*time.Second),
			RatePerSec: getEnvFloat("PARTNER_RATE_PER_SEC", 20),
			BurstSize:  getEnvInt("PARTNER_BURST", 40),
		},
		Policy: PolicyConfig{
			LateFee:       getEnvDecimal("LATE_FEE", decimal.NewFromInt(500)),
			IdealTurnover: getEnvDecimal("IDEAL_TURNOVER", decimal.NewFromInt(5_000_000)),
		},
		TLS: TLSConfig{
			CertFile: getEnv("TLS_CERT_FILE", ""),
			KeyFile:  getEnv("TLS_KEY_FILE", ""),
		},
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "lending-engine"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", ""),
		ServiceName:   "lending-engine",
	}
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}
