package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	// Timetable (departure-board proxy)
	TimetableBaseURL  string
	TimetableToken    string
	TimetableTimezone string

	// Collaborator calls and journey state
	CollaboratorTimeout time.Duration
	TransitTimeout      time.Duration
	// Sessions untouched for SessionIdleTimeout are dropped every SessionSweepInterval
	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration

	// Motion analysis
	InertialCentreMagnitudes bool

	// Caches
	StationCacheTTL time.Duration
	ServiceCacheTTL time.Duration

	// Redis (optional live position fan-out)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Per-user rate limiting
	RateLimit       int
	RateLimitWindow time.Duration
}

// Load 加载配置
func Load() *Config {
	// A missing .env is fine: the environment may already be populated
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	return &Config{
		Port:      getEnv("PORT", ":8080"),
		DBPath:    getEnv("DB_PATH", "./data/journeys.db"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		TimetableBaseURL:  getEnv("TIMETABLE_BASE_URL", "https://huxley2.azurewebsites.net"),
		TimetableToken:    getEnv("TIMETABLE_TOKEN", ""),
		TimetableTimezone: getEnv("TIMETABLE_TIMEZONE", "Europe/London"),

		CollaboratorTimeout: getEnvDuration("COLLABORATOR_TIMEOUT", 5*time.Second),
		TransitTimeout:      getEnvDuration("TRANSIT_TIMEOUT", 3*time.Hour),

		SessionIdleTimeout:   getEnvDuration("SESSION_IDLE_TIMEOUT", 6*time.Hour),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		InertialCentreMagnitudes: getEnvBool("INERTIAL_CENTRE_MAGNITUDES", false),

		StationCacheTTL: getEnvDuration("STATION_CACHE_TTL", 10*time.Minute),
		ServiceCacheTTL: getEnvDuration("SERVICE_CACHE_TTL", 2*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimit:       getEnvInt("RATE_LIMIT", 120),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

// Location resolves the timetable's local time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimetableTimezone)
	if err != nil {
		log.Printf("Unknown TIMETABLE_TIMEZONE %q, using UTC: %v", c.TimetableTimezone, err)
		return time.UTC
	}
	return loc
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "3h") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
