package config

import (
	"os"
	"strconv"
	"time"

	"yoyaku/internal/cache"
	"yoyaku/internal/database"
	"yoyaku/internal/external"
	"yoyaku/internal/messaging"
	"yoyaku/internal/search"
)

type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// BookingWindowDays bounds how far ahead a reservation date may be
	BookingWindowDays int

	// Support contacts offered to the guest when the gateway is unreachable
	SupportEmail string
	SupportPhone string

	Database      database.Config
	NATS          messaging.Config
	Payment       external.PaymentConfig
	Mailer        external.MailerConfig
	Cache         cache.Config
	Elasticsearch search.Config
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		BookingWindowDays: getEnvInt("BOOKING_WINDOW_DAYS", 90),

		SupportEmail: getEnv("SUPPORT_EMAIL", "support@yoyaku.example"),
		SupportPhone: getEnv("SUPPORT_PHONE", "+81-3-1234-5678"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "yoyaku"),
			Password:           getEnv("DB_PASSWORD", "yoyaku123"),
			DBName:             getEnv("DB_NAME", "yoyaku"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "yoyaku"),
			ClientID:  getEnv("NATS_CLIENT_ID", "yoyaku-api"),
		},

		Payment: external.PaymentConfig{
			BaseURL:     getEnv("PAYMENT_GATEWAY_URL", "http://localhost:4242"),
			MerchantID:  getEnv("PAYMENT_MERCHANT_ID", ""),
			Secret:      getEnv("PAYMENT_SECRET", ""),
			Timeout:     time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
			PingTimeout: time.Duration(getEnvInt("PAYMENT_PING_TIMEOUT_SEC", 5)) * time.Second,
		},

		Mailer: external.MailerConfig{
			BaseURL:   getEnv("MAILER_URL", "http://localhost:2525"),
			APIKey:    getEnv("MAILER_API_KEY", ""),
			FromAddr:  getEnv("MAILER_FROM", "reservations@yoyaku.example"),
			AdminAddr: getEnv("MAILER_ADMIN", "ops@yoyaku.example"),
			Timeout:   time.Duration(getEnvInt("MAILER_TIMEOUT_SEC", 15)) * time.Second,
		},

		Cache: cache.Config{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: os.Getenv("VALKEY_PASSWORD"),
			PlanTTL:  time.Duration(getEnvInt("CACHE_PLAN_TTL_SEC", 300)) * time.Second,
			ListTTL:  time.Duration(getEnvInt("CACHE_LIST_TTL_SEC", 60)) * time.Second,
			AuthTTL:  time.Duration(getEnvInt("CACHE_AUTH_TTL_SEC", 600)) * time.Second,
		},

		Elasticsearch: LoadElasticsearch(),
	}
}

// LoadElasticsearch is split out because cmd/consumers builds its own
// client without the rest of the config.
func LoadElasticsearch() search.Config {
	timeout := 30 * time.Second
	if val := os.Getenv("ELASTICSEARCH_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			timeout = parsed
		}
	}

	return search.Config{
		URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
		Index:      getEnv("ELASTICSEARCH_INDEX", "restaurants"),
		Username:   os.Getenv("ELASTICSEARCH_USERNAME"),
		Password:   os.Getenv("ELASTICSEARCH_PASSWORD"),
		MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		Timeout:    timeout,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
