package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings is the process configuration, read from the environment.
type Settings struct {
	HTTPAddr string
	// CORSOrigins lists the browser origins allowed to call the API; empty
	// allows any.
	CORSOrigins []string

	DB DBSettings

	JWTSecret string
	JWTTTL    time.Duration

	// CacheRevalidate bounds how stale a cached directory read may be.
	CacheRevalidate time.Duration
	SessionTTL      time.Duration

	GeocodingAPIKey string
	GeocodeCacheTTL time.Duration
	GeocodeTimeout  time.Duration

	// AMQPURL enables cross-replica cache invalidation when set.
	AMQPURL string

	Log LogSettings
}

type DBSettings struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

type LogSettings struct {
	File   string
	Level  string
	Stdout bool
	SQL    bool
}

// Load reads .env (if present) and then the environment, applying defaults.
func Load() Settings {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found – relying on env vars")
	}

	return Settings{
		HTTPAddr:    getEnv("HTTP_ADDR", "0.0.0.0:8080"),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		DB: DBSettings{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "wayfinder"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		JWTSecret:       getEnv("JWT_SECRET", "supersecret"),
		JWTTTL:          time.Duration(getEnvInt("JWT_TTL_HOURS", 72)) * time.Hour,
		CacheRevalidate: time.Duration(getEnvInt("CACHE_REVALIDATE_SECONDS", 60)) * time.Second,
		SessionTTL:      time.Duration(getEnvInt("ALIGNMENT_SESSION_TTL_MINUTES", 30)) * time.Minute,
		GeocodingAPIKey: getEnv("GEOCODING_API_KEY", ""),
		GeocodeCacheTTL: time.Duration(getEnvInt("GEOCODE_CACHE_TTL_HOURS", 24*30)) * time.Hour,
		GeocodeTimeout:  time.Duration(getEnvInt("GEOCODE_TIMEOUT_SECONDS", 10)) * time.Second,
		AMQPURL:         getEnv("AMQP_URL", ""),
		Log: LogSettings{
			File:   getEnv("LOG_FILE", "./logs/app.log"),
			Level:  getEnv("LOG_LEVEL", "info"),
			Stdout: getEnvBool("LOG_STDOUT", false),
			SQL:    getEnvBool("LOG_SQL", false),
		},
	}
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
