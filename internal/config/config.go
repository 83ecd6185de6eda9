package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Gemini GeminiConfig
	Upload UploadConfig
	Model  ModelConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	AllowOrigins string
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

type UploadConfig struct {
	MaxBytes int64
}

// ModelConfig bounds every outbound model call.
type ModelConfig struct {
	CallTimeout       time.Duration
	RetryBackoff      time.Duration
	MaxConcurrency    int
	QueueTimeout      time.Duration
	RequestsPerSecond float64
	Burst             int
}

// multipartSlack covers boundaries and the duration field on top of the media bytes.
const multipartSlack = 1 << 20

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			Env:          getEnv("ENV", "development"),
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Gemini: GeminiConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature: float32(getEnvAsFloat("GEMINI_TEMPERATURE", 0.2)),
		},
		Upload: UploadConfig{
			MaxBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 10485760),
		},
		Model: ModelConfig{
			CallTimeout:       getEnvAsDuration("MODEL_CALL_TIMEOUT", "60s"),
			RetryBackoff:      getEnvAsDuration("MODEL_RETRY_BACKOFF", "2s"),
			MaxConcurrency:    getEnvAsInt("MODEL_MAX_CONCURRENCY", 4),
			QueueTimeout:      getEnvAsDuration("MODEL_QUEUE_TIMEOUT", "10s"),
			RequestsPerSecond: getEnvAsFloat("MODEL_REQUESTS_PER_SECOND", 2),
			Burst:             getEnvAsInt("MODEL_BURST", 4),
		},
	}
}

// BodyLimit is the largest request body the server reads before the upload
// gateway sees it. Anything between MaxBytes and BodyLimit is rejected by the
// gateway so the client gets the same too_large error either way.
func (c *Config) BodyLimit() int {
	return int(c.Upload.MaxBytes) + multipartSlack
}

// IsProduction reports whether ENV is "production". Production runs without
// the startup banner and with a terser access log.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// RequestTimeout is the deadline for a whole evaluation: admission wait, two
// model calls and one backoff.
func (c *Config) RequestTimeout() time.Duration {
	return c.Model.QueueTimeout + 2*c.Model.CallTimeout + c.Model.RetryBackoff
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value >= 0 {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil && duration > 0 {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
