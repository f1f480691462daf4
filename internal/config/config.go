package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	Database                  DatabaseConfig
	Storage                   string
	Log                       LogConfig
	Scheduling                SchedulingConfig

	// HospitalKey is the provisioning credential doctors present at signup.
	// An empty key rejects every doctor signup.
	HospitalKey string

	DoctorCacheTTL         time.Duration
	AuthRateLimitPerMinute int
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig controls the booking template.
type SchedulingConfig struct {
	Location     *time.Location
	HorizonDays  int
	TimezoneName string
}

// Storage drivers.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "medi"),
	}

	// parseTime is required so DATETIME columns scan into time.Time.
	// clientFoundRows makes guarded updates report matched rows.
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	jwtExpMinutes, err := getEnvInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}

	jwtRefreshExpHours, err := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	horizonDays, err := getEnvInt("BOOKING_HORIZON_DAYS", 14)
	if err != nil {
		return nil, err
	}
	if horizonDays < 1 {
		return nil, fmt.Errorf("invalid BOOKING_HORIZON_DAYS: must be at least 1")
	}

	tzName := getEnv("CLINIC_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}

	cacheTTL, err := getEnvInt("DOCTOR_CACHE_TTL_SECONDS", 300)
	if err != nil {
		return nil, err
	}

	rateLimit, err := getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 20)
	if err != nil {
		return nil, err
	}

	storage := getEnv("STORAGE_DRIVER", StorageMySQL)
	if storage != StorageMySQL && storage != StorageMemory {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want %q or %q", storage, StorageMySQL, StorageMemory)
	}

	environment := getEnv("APP_ENV", "development")
	jwtSecret, err := getSecret("JWT_SECRET", DevJWTSecret, environment)
	if err != nil {
		return nil, err
	}
	jwtRefreshSecret, err := getSecret("JWT_REFRESH_SECRET", DevJWTRefreshSecret, environment)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:5173"),
		Environment:               environment,
		JWTSecret:                 jwtSecret,
		JWTRefreshSecret:          jwtRefreshSecret,
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		Database:                  dbConfig,
		Storage:                   storage,
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Scheduling: SchedulingConfig{
			Location:     loc,
			HorizonDays:  horizonDays,
			TimezoneName: tzName,
		},
		HospitalKey:            getEnv("HOSPITAL_KEY", ""),
		DoctorCacheTTL:         time.Duration(cacheTTL) * time.Second,
		AuthRateLimitPerMinute: rateLimit,
	}, nil
}

// Signing secrets used when APP_ENV is development or test and none is set.
const (
	DevJWTSecret        = "default_jwt_secret"
	DevJWTRefreshSecret = "default_refresh_secret"
)

// UsesDevSecrets reports whether either signing secret is a built-in default.
func (c *Config) UsesDevSecrets() bool {
	return c.JWTSecret == DevJWTSecret || c.JWTRefreshSecret == DevJWTRefreshSecret
}

// getSecret requires key outside development and test.
func getSecret(key, devDefault, environment string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	if environment == "development" || environment == "test" {
		return devDefault, nil
	}
	return "", fmt.Errorf("%s must be set when APP_ENV is %q", key, environment)
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
