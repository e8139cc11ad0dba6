package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API server and supporting services.
type Config struct {
	ListenAddr           string
	MySQLDSN             string
	JWTSecret            string
	WelcomeCoins         int
	ShortAPIKey          string
	ShortAPIBaseURL      string
	RequestTimeout       time.Duration
	PollMaxAttempts      int
	PollInterval         time.Duration
	PayPalClientID       string
	PayPalSecret         string
	PayPalAPIBase        string
	AppBaseURL           string
	DailyGrantCoins      int
	HistoryRetentionDays int
	AdminUsername        string
	AdminPassword        string
	S3Endpoint           string
	S3Region             string
	S3AccessKey          string
	S3SecretKey          string
	S3Bucket             string
	S3PublicBaseURL      string
	S3UsePathStyle       bool
	S3Prefix             string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultShortAPIBaseURL = "https://api.shortapi.ai"

	cfg := Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		WelcomeCoins:         getInt("WELCOME_COINS", 100),
		ShortAPIBaseURL:      normalizeBaseURL(getEnv("SHORTAPI_BASE_URL", defaultShortAPIBaseURL), defaultShortAPIBaseURL),
		RequestTimeout:       time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		PollMaxAttempts:      getInt("JOB_POLL_MAX_ATTEMPTS", 120),
		PollInterval:         time.Millisecond * time.Duration(getInt("JOB_POLL_INTERVAL_MS", 3000)),
		PayPalAPIBase:        getEnv("PAYPAL_API_BASE", "https://api-m.sandbox.paypal.com"),
		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:3000"),
		DailyGrantCoins:      getInt("DAILY_GRANT_COINS", 20),
		HistoryRetentionDays: getInt("HISTORY_RETENTION_DAYS", 30),
		AdminUsername:        getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:        getEnv("ADMIN_PASSWORD", "change-me"),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3Region:             os.Getenv("S3_REGION"),
		S3AccessKey:          os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:          os.Getenv("S3_SECRET_KEY"),
		S3Bucket:             os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:      os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:       getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:             getEnv("S3_PREFIX", "uploads"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.ShortAPIKey = os.Getenv("SHORTAPI_API_KEY")
	cfg.PayPalClientID = os.Getenv("PAYPAL_CLIENT_ID")
	cfg.PayPalSecret = os.Getenv("PAYPAL_SECRET")

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.ShortAPIKey == "" {
		missing = append(missing, "SHORTAPI_API_KEY")
	}
	if cfg.PayPalClientID == "" {
		missing = append(missing, "PAYPAL_CLIENT_ID")
	}
	if cfg.PayPalSecret == "" {
		missing = append(missing, "PAYPAL_SECRET")
	}
	if cfg.S3Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if cfg.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if cfg.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}
	if cfg.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if cfg.S3PublicBaseURL == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

// normalizeBaseURL keeps provider base URLs usable even when the env var is
// set to a bare domain without a scheme.
func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// No env file is fine when everything comes from the environment.
	return nil
}
