package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr string

	BackendBaseURL string
	BackendToken   string
	BackendTimeout int // seconds

	KafkaBrokers string // empty disables event publishing
	KafkaTopic   string

	DefaultCountry   string
	FallbackWeightKg decimal.Decimal
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8082")
	cfg.BackendBaseURL = getEnv("BACKEND_BASE_URL", "")
	if cfg.BackendBaseURL == "" {
		return Config{}, errors.New("set BACKEND_BASE_URL")
	}
	cfg.BackendToken = getEnv("BACKEND_TOKEN", "")
	cfg.BackendTimeout = getEnvInt("BACKEND_TIMEOUT_SECONDS", 15)

	cfg.KafkaBrokers = getEnv("KAFKA_BROKERS", "")
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "checkout-events")

	cfg.DefaultCountry = getEnv("DEFAULT_DESTINATION_COUNTRY", "US")

	w := getEnv("FALLBACK_WEIGHT_KG", "1.5")
	weight, err := decimal.NewFromString(w)
	if err != nil || weight.Sign() <= 0 {
		return Config{}, fmt.Errorf("bad FALLBACK_WEIGHT_KG %q", w)
	}
	cfg.FallbackWeightKg = weight

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
