package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// Config holds every runtime setting, read once at startup.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFile         string
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimezone string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTTTL    time.Duration

	OTPTTL          time.Duration
	OTPResendWindow time.Duration
	OTPMaxAttempts  int

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	// OnboardingIdentity is "pan" or "email".
	OnboardingIdentity string

	CashfreeBaseURL  string
	CashfreeAppID    string
	CashfreeSecret   string
	PaymentReturnURL string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars")
	}

	return &Config{
		HTTPAddr:        cast.ToString(getOrReturnDefault("HTTP_ADDR", "0.0.0.0:8080")),
		LogLevel:        cast.ToString(getOrReturnDefault("LOG_LEVEL", "debug")),
		LogFile:         cast.ToString(getOrReturnDefault("LOG_FILE", "./logs/app.log")),
		CORSOrigins:     strings.Split(cast.ToString(getOrReturnDefault("CORS_ORIGINS", "*")), ","),
		ShutdownTimeout: cast.ToDuration(getOrReturnDefault("SHUTDOWN_TIMEOUT", "10s")),

		DBHost:     cast.ToString(getOrReturnDefault("DB_HOST", "localhost")),
		DBPort:     cast.ToString(getOrReturnDefault("DB_PORT", "5432")),
		DBUser:     cast.ToString(getOrReturnDefault("DB_USER", "postgres")),
		DBPassword: cast.ToString(getOrReturnDefault("DB_PASSWORD", "password")),
		DBName:     cast.ToString(getOrReturnDefault("DB_NAME", "myfleet")),
		DBSSLMode:  cast.ToString(getOrReturnDefault("DB_SSLMODE", "disable")),
		DBTimezone: cast.ToString(getOrReturnDefault("DB_TIMEZONE", "UTC")),

		RedisAddr:     cast.ToString(getOrReturnDefault("REDIS_ADDR", "localhost:6379")),
		RedisPassword: cast.ToString(getOrReturnDefault("REDIS_PASSWORD", "")),
		RedisDB:       cast.ToInt(getOrReturnDefault("REDIS_DB", 0)),

		JWTSecret: cast.ToString(getOrReturnDefault("JWT_SECRET", "supersecret")),
		JWTTTL:    cast.ToDuration(getOrReturnDefault("JWT_TTL", "72h")),

		OTPTTL:          cast.ToDuration(getOrReturnDefault("OTP_TTL", "5m")),
		OTPResendWindow: cast.ToDuration(getOrReturnDefault("OTP_RESEND_WINDOW", "30s")),
		OTPMaxAttempts:  cast.ToInt(getOrReturnDefault("OTP_MAX_ATTEMPTS", 5)),

		TwilioAccountSID: cast.ToString(getOrReturnDefault("TWILIO_ACCOUNT_SID", "")),
		TwilioAuthToken:  cast.ToString(getOrReturnDefault("TWILIO_AUTH_TOKEN", "")),
		TwilioFrom:       cast.ToString(getOrReturnDefault("TWILIO_FROM", "")),

		OnboardingIdentity: cast.ToString(getOrReturnDefault("ONBOARDING_IDENTITY", "pan")),

		CashfreeBaseURL:  cast.ToString(getOrReturnDefault("CASHFREE_BASE_URL", "https://sandbox.cashfree.com")),
		CashfreeAppID:    cast.ToString(getOrReturnDefault("CASHFREE_APP_ID", "")),
		CashfreeSecret:   cast.ToString(getOrReturnDefault("CASHFREE_SECRET", "")),
		PaymentReturnURL: cast.ToString(getOrReturnDefault("PAYMENT_RETURN_URL", "http://localhost:5173/subscription")),

		RateLimitRPS:   cast.ToFloat64(getOrReturnDefault("RATE_LIMIT_RPS", 1)),
		RateLimitBurst: cast.ToInt(getOrReturnDefault("RATE_LIMIT_BURST", 5)),
	}
}

// getOrReturnDefault reads an environment variable or returns the provided default
func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}
