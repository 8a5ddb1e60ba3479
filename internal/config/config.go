package config

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Payment method identifiers accepted in PAYMENT_METHODS.
const (
	MethodCOD    = "cod"
	MethodPayPal = "paypal"
	MethodVNPay  = "vnpay"
	MethodQR     = "qr"
)

// Config holds application configuration values.
type Config struct {
	AppPort           string
	BackendURL        string
	BackendCookieName string
	GeoAPIURL         string
	DatabaseURL       string
	RedisURL          string
	GeoCacheTTL       time.Duration
	SessionSecret     string
	SessionTTL        time.Duration
	SessionCipherKey  []byte
	CookieSecure      bool
	CSRFEnabled       bool
	HTTPTimeout       time.Duration
	PayPalClientID    string
	PayPalCurrency    string
	ExchangeRate      decimal.Decimal
	PaymentMethods    []string
	QRBankID          string
	QRAccountNo       string
	QRAccountName     string
	OTPResend         time.Duration
	TelegramBotToken  string
	TelegramAdminChat string
	LogLevel          string
	LogPretty         bool
}

// Load reads environment variables and returns a populated Config.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "8080"),
		BackendURL:        strings.TrimRight(getEnv("BACKEND_URL", "https://api.domanhhung.id.vn"), "/"),
		BackendCookieName: getEnv("BACKEND_COOKIE_NAME", "token"),
		GeoAPIURL:         strings.TrimRight(getEnv("GEO_API_URL", "https://provinces.open-api.vn/api"), "/"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		GeoCacheTTL:       getEnvDuration("GEO_CACHE_TTL_MINUTES", 24*60) * time.Minute,
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionTTL:        getEnvDuration("SESSION_TTL_HOURS", 24) * time.Hour,
		CookieSecure:      getEnv("COOKIE_SECURE", "false") == "true",
		CSRFEnabled:       getEnv("CSRF_ENABLED", "true") == "true",
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT_SECONDS", 15) * time.Second,
		PayPalClientID:    getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalCurrency:    getEnv("PAYPAL_CURRENCY", "USD"),
		ExchangeRate:      getEnvDecimal("EXCHANGE_RATE", decimal.NewFromInt(25000)),
		PaymentMethods:    splitList(getEnv("PAYMENT_METHODS", "cod,paypal,vnpay,qr")),
		QRBankID:          getEnv("QR_BANK_ID", ""),
		QRAccountNo:       getEnv("QR_ACCOUNT_NO", ""),
		QRAccountName:     getEnv("QR_ACCOUNT_NAME", ""),
		OTPResend:         getEnvDuration("OTP_RESEND_SECONDS", 300) * time.Second,
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAdminChat: getEnv("TELEGRAM_ADMIN_CHAT_ID", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnv("LOG_PRETTY", "false") == "true",
	}

	if cfg.AppPort == "" {
		log.Fatal().Msg("APP_PORT must be set")
	}

	if cfg.SessionSecret == "" {
		log.Fatal().Msg("SESSION_SECRET must be set")
	}

	cfg.SessionCipherKey = loadKey("SESSION_CIPHER_KEY", 32)

	return cfg
}

// PaymentMethodEnabled reports whether method is listed in PAYMENT_METHODS.
func (c *Config) PaymentMethodEnabled(method string) bool {
	for _, m := range c.PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback int) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return time.Duration(parsed)
		}
	}
	return time.Duration(fallback)
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := decimal.NewFromString(value); err == nil && parsed.IsPositive() {
			return parsed
		}
		log.Warn().Str("key", key).Msg("invalid decimal value, using default")
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadKey decodes a base64 key of n bytes, generating a random one when absent.
func loadKey(key string, n int) []byte {
	raw := os.Getenv(key)
	if raw != "" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err == nil && len(decoded) == n {
			return decoded
		}
		log.Warn().Str("key", key).Msg("key is invalid, generating a development key")
	} else {
		log.Warn().Str("key", key).Msg("key not set, generating a development key; sessions will not survive a restart")
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("failed to read random bytes")
	}
	return b
}
