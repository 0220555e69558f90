package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppPort           = "8080"
	defaultPaymentCreatePath = "/api/payment/create/"
	defaultPaymentTimeout    = 30 * time.Second
	defaultPaymentRetries    = 3
	defaultTimezone          = "America/Sao_Paulo"
	defaultCORSOrigin        = "http://localhost:3000"
)

type Config struct {
	AppEnv  string
	AppPort string

	BackendBaseURL    string
	PaymentCreatePath string
	PaymentTimeout    time.Duration
	PaymentMaxRetries int

	SessionSecret string
	Timezone      string

	CORSOrigin        string
	InternalSecretKey string

	// Optional collaborators; empty disables them.
	DBURL       string
	RabbitMQURL string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:            os.Getenv("APP_ENV"),
		AppPort:           envOr("APP_PORT", defaultAppPort),
		BackendBaseURL:    os.Getenv("BACKEND_BASE_URL"),
		PaymentCreatePath: envOr("PAYMENT_CREATE_PATH", defaultPaymentCreatePath),
		PaymentTimeout:    envSeconds("PAYMENT_TIMEOUT_SECONDS", defaultPaymentTimeout),
		PaymentMaxRetries: envInt("PAYMENT_MAX_RETRIES", defaultPaymentRetries),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		Timezone:          envOr("TIMEZONE", defaultTimezone),
		CORSOrigin:        envOr("CORS_ORIGIN", defaultCORSOrigin),
		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),
		DBURL:             os.Getenv("DB_URL"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
	}

	if cfg.BackendBaseURL == "" {
		log.Fatal("Environment variables not loaded properly: BACKEND_BASE_URL is required")
	}

	if cfg.SessionSecret == "" {
		log.Println("SESSION_SECRET not set, using an insecure development secret")
		cfg.SessionSecret = "dev-session-secret-change-me"
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	n := envInt(key, -1)
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
