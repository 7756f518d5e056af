package config

import (
	"os"
	"strconv"
	"time"

	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	MetricsPort             string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	RedisAddr               string
	RedisPassword           string
	JWTSecret               string
	LogLevel                string
	LogFormat               string

	// Notification pipeline
	PushTimeout         time.Duration
	DispatchConcurrency int
	MaxZonesPerUser     int
	TokenCacheTTL       time.Duration

	// Retention sweep
	PinTTL     time.Duration
	WatcherTTL time.Duration

	RateLimitRPS float64
}

// Load reads configuration from the environment, after loading a .env file if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "pinpoint"),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "json"),
		PushTimeout:             getEnvDuration("PUSH_TIMEOUT", 5*time.Second),
		DispatchConcurrency:     getEnvInt("DISPATCH_CONCURRENCY", 16),
		MaxZonesPerUser:         getEnvInt("MAX_ZONES_PER_USER", 2),
		TokenCacheTTL:           getEnvDuration("TOKEN_CACHE_TTL", 10*time.Minute),
		PinTTL:                  getEnvDuration("PIN_TTL", 24*time.Hour),
		WatcherTTL:              getEnvDuration("WATCHER_TTL", 7*24*time.Hour),
		RateLimitRPS:            getEnvFloat("RATE_LIMIT_RPS", 20),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
