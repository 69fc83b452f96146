package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	PolicyOff     = "off"
	PolicyWarn    = "warn"
	PolicyEnforce = "enforce"
)

type Config struct {
	HTTPPort string
	LogLevel string

	DatabaseDriver string
	DatabaseURL    string
	MongoDatabase  string

	LLMProvider       string
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIModel       string
	LLMTimeoutSeconds int
	HistoryTurns      int

	JWTSecret   string
	JWTTTLHours int

	ValidationPolicy      string
	MaxConcurrentRequests int
}

var AppConfig Config

// LoadConfig fills AppConfig from the environment (and .env when present) and
// validates the result.
func LoadConfig() error {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "INFO"),
		DatabaseDriver:        strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite)),
		DatabaseURL:           getEnv("DATABASE_URL", "health_tracker.db?_busy_timeout=5000&_txlock=immediate"),
		MongoDatabase:         getEnv("MONGO_DATABASE", "health_tracker"),
		LLMProvider:           strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeoutSeconds:     getEnvAsInt("LLM_TIMEOUT_SECONDS", 30),
		HistoryTurns:          getEnvAsInt("HISTORY_TURNS", 8),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		JWTTTLHours:           getEnvAsInt("JWT_TTL_HOURS", 24),
		ValidationPolicy:      strings.ToLower(getEnv("VALIDATION_POLICY", PolicyWarn)),
		MaxConcurrentRequests: getEnvAsInt("MAX_CONCURRENT_REQUESTS", 100),
	}

	return AppConfig.Validate()
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	switch c.DatabaseDriver {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must not be empty")
	}
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY environment variable is required for the gemini provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY environment variable is required for the openai provider")
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.ValidationPolicy {
	case PolicyOff, PolicyWarn, PolicyEnforce:
	default:
		return fmt.Errorf("unsupported VALIDATION_POLICY %q", c.ValidationPolicy)
	}
	if c.LLMTimeoutSeconds < 0 || c.HistoryTurns < 0 || c.JWTTTLHours < 0 || c.MaxConcurrentRequests < 0 {
		return errors.New("numeric settings must be >= 0")
	}
	return nil
}

// LLMTimeout is zero when model calls should run without a deadline.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
