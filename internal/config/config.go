package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port             string
	Env              string
	MongoURI         string
	DBName           string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	JWTSecret        string
	SessionTTL       time.Duration
	SessionCookie    string
	CORSOrigins      []string
	ShippingFlat     float64
	TaxRate          float64
	FreeShippingOver float64

	// Transactions can be disabled for standalone mongod, which rejects them.
	MongoTransactions bool
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
}

// FromEnv builds a Config from the current process environment.
func FromEnv() Config {
	return Config{
		Port:             getEnvOrDefault("PORT", "8080"),
		Env:              getEnvOrDefault("APP_ENV", "development"),
		MongoURI:         getEnvOrDefault("MONGO_URI", ""),
		DBName:           getEnvOrDefault("DB_NAME", "storefront"),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:          getIntEnv("REDIS_DB", 0),
		JWTSecret:        getEnvOrDefault("JWT_SECRET", ""),
		SessionTTL:       getDurationEnv("SESSION_TTL", 168, time.Hour),
		SessionCookie:    getEnvOrDefault("SESSION_COOKIE", "storefront_session"),
		CORSOrigins:      getListEnv("CORS_ORIGINS"),
		ShippingFlat:     getFloatEnv("SHIPPING_FLAT", 0),
		TaxRate:          getFloatEnv("TAX_RATE", 0),
		FreeShippingOver: getFloatEnv("FREE_SHIPPING_OVER", 0),

		MongoTransactions: getBoolEnv("MONGO_TRANSACTIONS", true),
	}
}

func (c Config) Validate() error {
	if c.MongoURI == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TaxRate < 0 || c.ShippingFlat < 0 || c.FreeShippingOver < 0 {
		return errors.New("TAX_RATE, SHIPPING_FLAT and FREE_SHIPPING_OVER must not be negative")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
