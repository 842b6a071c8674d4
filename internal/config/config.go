package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the dashboard service.
type Config struct {
	APIBaseURL    string
	APIEmail      string
	APIPassword   string
	APIToken      string
	APIAdminLogin bool
	APITimeout    time.Duration

	DatabaseURL string
	HTTPAddr    string

	TelegramToken   string
	RefreshInterval time.Duration
	ReportInterval  time.Duration
	// DigestTime is an optional HH:MM; when set the digest runs once a day
	// instead of every ReportInterval.
	DigestTime      string
	Timezone        *time.Location
	DefaultPageSize int

	LogFilePath string
	LogLevel    string
}

// Load reads configuration from a .env file (if any) and environment
// variables, applying sane defaults.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		APIBaseURL:      strings.TrimRight(env("API_BASE_URL"), "/"),
		APIEmail:        env("API_EMAIL"),
		APIPassword:     env("API_PASSWORD"),
		APIToken:        env("API_TOKEN"),
		APIAdminLogin:   parseBool(env("API_ADMIN_LOGIN"), true),
		APITimeout:      parseDuration(env("API_TIMEOUT"), 15*time.Second),
		DatabaseURL:     env("DATABASE_URL"),
		HTTPAddr:        env("HTTP_ADDR"),
		TelegramToken:   env("TELEGRAM_TOKEN"),
		RefreshInterval: parseDuration(env("REFRESH_INTERVAL"), 5*time.Minute),
		ReportInterval:  parseInterval(env("REPORT_INTERVAL_HOURS")),
		DigestTime:      env("DIGEST_TIME"),
		DefaultPageSize: parseInt(env("DEFAULT_PAGE_SIZE"), 5),
		LogFilePath:     env("LOG_FILE_PATH"),
		LogLevel:        env("LOG_LEVEL"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "task_dashboard.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}

	tzName := env("TIMEZONE")
	if tzName == "" {
		tzName = "Local"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return cfg, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}
	cfg.Timezone = loc

	if cfg.APIBaseURL == "" {
		return cfg, fmt.Errorf("API_BASE_URL is required")
	}
	if cfg.APIToken == "" && (cfg.APIEmail == "" || cfg.APIPassword == "") {
		return cfg, fmt.Errorf("either API_TOKEN or API_EMAIL and API_PASSWORD are required")
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseBool(raw string, def bool) bool {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
