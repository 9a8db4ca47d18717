package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	App       AppConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	RabbitMQ  RabbitMQConfig
	Clock     ClockConfig
	Loyalty   LoyaltyConfig
	Billing   BillingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds staff token configuration
type JWTConfig struct {
	Secret              string
	StaffExpiration     time.Duration
	AcceptableSkewInSec int
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig controls the PIN-attempt limiter in front of the clock screens.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// ClockConfig holds Shift Session Engine settings that are not per-shop.
type ClockConfig struct {
	// EnforceGeofence turns the remote-approval evaluation into a hard gate on clock-in.
	EnforceGeofence     bool
	DefaultRadiusMeters float64
	PinHashCost         int
	PinExpirySweep      string
}

type LoyaltyConfig struct {
	Cooldown time.Duration
}

type BillingConfig struct {
	WebhookToken string
	GracePeriod  time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "shopfloor"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	config.RateLimit = RateLimitConfig{
		Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
		Capacity:       getEnvInt("RATE_LIMIT_CAPACITY", 5),
		RefillInterval: getEnvDuration("RATE_LIMIT_REFILL_INTERVAL", 30*time.Second),
		TTL:            getEnvDuration("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         getEnv("RATE_LIMIT_PREFIX", "rl"),
	}
	if config.RateLimit.Capacity < 1 {
		config.RateLimit.Capacity = 1
	}

	config.RabbitMQ = RabbitMQConfig{
		URL:      getEnv("RABBITMQ_URL", ""),
		Exchange: getEnv("RABBITMQ_EXCHANGE", "shopfloor.events"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS"),
	}
	if len(config.App.AllowedOrigins) == 0 {
		config.App.AllowedOrigins = []string{"http://localhost:3000"}
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:              getEnv("JWT_SECRET_KEY", ""),
		StaffExpiration:     getEnvDuration("JWT_STAFF_EXPIRATION_TIME", 15*time.Minute),
		AcceptableSkewInSec: getEnvInt("JWT_ACCEPTABLE_SKEW_SECONDS", 30),
	}

	radius, err := strconv.ParseFloat(getEnv("CLOCK_DEFAULT_RADIUS_METERS", "100"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CLOCK_DEFAULT_RADIUS_METERS: %w", err)
	}

	config.Clock = ClockConfig{
		EnforceGeofence:     getEnvBool("CLOCK_ENFORCE_GEOFENCE", false),
		DefaultRadiusMeters: radius,
		PinHashCost:         getEnvInt("PIN_HASH_COST", 6),
		PinExpirySweep:      getEnv("PIN_EXPIRY_SWEEP", "@every 1h"),
	}

	config.Loyalty = LoyaltyConfig{
		Cooldown: getEnvDuration("LOYALTY_COOLDOWN", 30*time.Minute),
	}

	config.Billing = BillingConfig{
		WebhookToken: getEnv("BILLING_WEBHOOK_TOKEN", ""),
		GracePeriod:  getEnvDuration("BILLING_GRACE_PERIOD", 7*24*time.Hour),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.JWT.StaffExpiration <= 0 {
		return fmt.Errorf("JWT_STAFF_EXPIRATION_TIME must be positive")
	}
	if c.Billing.WebhookToken == "" {
		return fmt.Errorf("BILLING_WEBHOOK_TOKEN is required")
	}
	if c.Clock.DefaultRadiusMeters <= 0 {
		return fmt.Errorf("CLOCK_DEFAULT_RADIUS_METERS must be positive")
	}
	if c.Clock.PinHashCost < 4 || c.Clock.PinHashCost > 31 {
		return fmt.Errorf("PIN_HASH_COST must be between 4 and 31")
	}
	if c.Loyalty.Cooldown <= 0 {
		return fmt.Errorf("LOYALTY_COOLDOWN must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string = strings.Split(value, ",")
	return result
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}
