package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	// API
	APIPort         int
	APIKey          string
	CORSAllowOrigin string
	AppName         string
	WebhookURL      string

	// Price logs
	DataDir  string
	Timezone string
	Location *time.Location

	// Price provider
	ApisedBaseURL          string
	ApisedAPIKey           string
	FetchTimeoutSeconds    int
	FetchRateLimitPerMin   int
	PollIntervalSeconds    int
	USDToAEDRate           float64
	GramsPerOunce          float64
	HistoryCacheTTLSeconds int

	// Database (orders)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Redis (history cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:         envInt("API_PORT", 5000),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		AppName:         envStr("APP_NAME", "VitaNovaGold"),
		WebhookURL:      envStr("WEBHOOK_URL", ""),

		DataDir:  envStr("DATA_DIR", "data"),
		Timezone: envStr("TIMEZONE", "Asia/Dubai"),

		ApisedBaseURL:          envStr("APISED_BASE_URL", "https://gold.g.apised.com"),
		ApisedAPIKey:           envStr("APISED_API_KEY", ""),
		FetchTimeoutSeconds:    envInt("FETCH_TIMEOUT_SECONDS", 15),
		FetchRateLimitPerMin:   envInt("FETCH_RATE_LIMIT_PER_MIN", 30),
		PollIntervalSeconds:    envInt("POLL_INTERVAL_SECONDS", 0),
		USDToAEDRate:           envFloat("USD_TO_AED_RATE", 3.6728),
		GramsPerOunce:          envFloat("GRAMS_PER_OUNCE", 31.1035),
		HistoryCacheTTLSeconds: envInt("HISTORY_CACHE_TTL_SECONDS", 60),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "vitanova_gold"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Sprintf("API_PORT %d out of range", c.APIPort))
	}
	if c.DataDir == "" {
		errs = append(errs, "DATA_DIR is required")
	}
	if c.USDToAEDRate <= 0 {
		errs = append(errs, "USD_TO_AED_RATE must be positive")
	}
	if c.GramsPerOunce <= 0 {
		errs = append(errs, "GRAMS_PER_OUNCE must be positive")
	}
	if c.FetchTimeoutSeconds <= 0 {
		errs = append(errs, "FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.PollIntervalSeconds < 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS cannot be negative")
	}

	if c.ApisedAPIKey == "" {
		fmt.Println("[WARN] APISED_API_KEY not set, live price requests will be rejected upstream")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set, REST API has no authentication")
	}
	if !c.OrdersEnabled() {
		fmt.Println("[WARN] DB_USER not set, order endpoints disabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== VitaNova Gold Price Backend ===")
	fmt.Printf("API Port: %d\n", c.APIPort)
	fmt.Printf("API Auth: %s\n", boolLabel(c.APIKey != "", "enabled", "disabled"))
	fmt.Printf("CORS Origin: %s\n", c.CORSAllowOrigin)
	fmt.Println("--------------------------------------")
	fmt.Printf("Data Dir: %s\n", c.DataDir)
	fmt.Printf("Timezone: %s\n", c.Timezone)
	fmt.Printf("Peg: %.4f AED/USD, %.4f g/oz\n", c.USDToAEDRate, c.GramsPerOunce)
	fmt.Println("--------------------------------------")
	fmt.Printf("Provider: %s (key %s)\n", c.ApisedBaseURL, boolLabel(c.ApisedAPIKey != "", "configured", "not set"))
	fmt.Printf("Fetch Timeout: %ds, Rate Limit: %d/min\n", c.FetchTimeoutSeconds, c.FetchRateLimitPerMin)
	if c.PollIntervalSeconds > 0 {
		fmt.Printf("Poller: every %ds\n", c.PollIntervalSeconds)
	} else {
		fmt.Println("Poller: disabled")
	}
	fmt.Println("--------------------------------------")
	fmt.Printf("Orders DB: %s\n", boolLabel(c.OrdersEnabled(), fmt.Sprintf("%s:%d/%s", c.DBHost, c.DBPort, c.DBName), "disabled"))
	fmt.Printf("History Cache: %s\n", boolLabel(c.CacheEnabled(), c.RedisAddr, "disabled"))
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) OrdersEnabled() bool { return c.DBUser != "" }

func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

func (c *Config) DailyLogPath() string   { return filepath.Join(c.DataDir, "DailyGold.csv") }
func (c *Config) MonthlyLogPath() string { return filepath.Join(c.DataDir, "HistoricalMVPGold.csv") }
func (c *Config) MarkerPath() string     { return filepath.Join(c.DataDir, "last_historical_month.txt") }

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) HistoryCacheTTL() time.Duration {
	return time.Duration(c.HistoryCacheTTLSeconds) * time.Second
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
