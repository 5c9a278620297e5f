package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/markdave123-py/Learnify/internal/logger"
)

type Config struct {
	DatabaseURL string
	Port        string
	WebDir      string
	CorsOrigins []string

	JWTSecret   string
	JWTTTLHours int

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	R2AccountID  string
	R2Endpoint   string
	BucketName   string

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string
	GroqRPM     int
	AIAPIKey    string
	GenModel    string

	MaxUploadMB    int
	MaxInputTokens int

	StripeSecretKey     string
	StripeWebhookSecret string
	BasicPriceID        string
	ProPriceID          string
	BasicDailyLimit     int
	ProDailyLimit       int
	RequireSubscription bool

	LogLevel  string
	LogFormat string
}

// LoadConfig loads the .env file (when present) and the environment into a Config.
// envFile may be empty, in which case ./.env is tried.
func LoadConfig(envFile string) *Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warn("could not load env file", "path", envFile, "err", err)
		}
	} else {
		_ = godotenv.Load()
	}

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		WebDir:      getEnv("WEB_DIR", "./web"),
		CorsOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 24),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "auto"),
		R2AccountID:  getEnv("R2_ACCOUNT_ID", ""),
		R2Endpoint:   getEnv("R2_ENDPOINT", ""),
		BucketName:   getEnv("BUCKET_NAME", "learnify-pdfs"),

		GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
		GroqBaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:   getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqRPM:     getEnvInt("GROQ_RPM", 30),
		AIAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GenModel:    getEnv("GEN_MODEL", "gemini-2.0-flash"),

		MaxUploadMB:    getEnvInt("MAX_UPLOAD_MB", 10),
		MaxInputTokens: getEnvInt("MAX_INPUT_TOKENS", 6000),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		BasicPriceID:        getEnv("BASIC_PRICE_ID", "price_1RiXAAFKFEDTLG9rfn3BuE2W"),
		ProPriceID:          getEnv("PRO_PRICE_ID", "price_1RiXAAFKFEDTLG9rP09lWaVa"),
		BasicDailyLimit:     getEnvInt("BASIC_DAILY_LIMIT", 5),
		ProDailyLimit:       getEnvInt("PRO_DAILY_LIMIT", 1000),
		RequireSubscription: getEnvBool("REQUIRE_SUBSCRIPTION", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate reports every required key that is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.GroqAPIKey == "" && c.AIAPIKey == "" {
		missing = append(missing, "GROQ_API_KEY or GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MaxUploadBytes is the multipart body cap derived from MaxUploadMB.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("env value is not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
