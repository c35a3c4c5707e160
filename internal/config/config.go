package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	PermissionGranted = "granted"
	PermissionPrompt  = "prompt"
)

type Config struct {
	Server struct {
		Enabled      bool
		Port         string        `validate:"required,numeric"`
		ReadTimeout  time.Duration `validate:"gte=0"`
		WriteTimeout time.Duration `validate:"gte=0"`
		LogLevel     string        `validate:"oneof=debug info warn error"`
	}

	WeatherAPI struct {
		OpenWeatherAPIKey string `validate:"required"`
		OpenWeatherURL    string `validate:"required,url"`
	}

	Location struct {
		Permission string `validate:"oneof=granted prompt"`
		DBPath     string
		Seed       *models.Coordinate
	}

	CircuitBreaker struct {
		Threshold int           `validate:"gte=1"`
		Timeout   time.Duration `validate:"gte=0"`
	}
}

var validate = validator.New()

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := &Config{}

	// Server configuration
	cfg.Server.Enabled = parseBool(getEnv("HTTP_ENABLED", "true"))
	cfg.Server.Port = getEnv("FIBER_PORT", "8080")
	cfg.Server.ReadTimeout = parseDuration(getEnv("FIBER_READ_TIMEOUT", "10s"))
	cfg.Server.WriteTimeout = parseDuration(getEnv("FIBER_WRITE_TIMEOUT", "10s"))
	cfg.Server.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))

	// Weather API configuration
	cfg.WeatherAPI.OpenWeatherAPIKey = getEnv("OPENWEATHER_API_KEY", "")
	cfg.WeatherAPI.OpenWeatherURL = getEnv("OPENWEATHER_URL", "https://api.openweathermap.org/data/2.5/weather")

	// Location configuration
	cfg.Location.Permission = strings.ToLower(getEnv("LOCATION_PERMISSION", PermissionPrompt))
	cfg.Location.DBPath = lookupEnv("LOCATION_DB_PATH", "location.db")
	if seed := getEnv("LOCATION_SEED", ""); seed != "" {
		coord, err := parseCoordinate(seed)
		if err != nil {
			return nil, fmt.Errorf("LOCATION_SEED: %w", err)
		}
		cfg.Location.Seed = &coord
	}

	// Circuit breaker configuration
	cfg.CircuitBreaker.Threshold = parseInt(getEnv("CIRCUIT_BREAKER_THRESHOLD", "3"))
	cfg.CircuitBreaker.Timeout = parseDuration(getEnv("CIRCUIT_BREAKER_TIMEOUT", "30s"))

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv is getEnv for settings where an empty value is meaningful.
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func parseDuration(value string) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("value", value), zap.Error(err))
		return 0
	}
	return duration
}

func parseInt(value string) int {
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("value", value), zap.Error(err))
		return 0
	}
	return intValue
}

func parseBool(value string) bool {
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		zap.L().Warn("Failed to parse bool", zap.String("value", value), zap.Error(err))
		return false
	}
	return boolValue
}

func parseCoordinate(value string) (models.Coordinate, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return models.Coordinate{}, fmt.Errorf("want \"lat,lon\", got %q", value)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("longitude: %w", err)
	}

	coord := models.Coordinate{Latitude: lat, Longitude: lon}
	if err := validate.Struct(coord); err != nil {
		return models.Coordinate{}, err
	}
	return coord, nil
}
