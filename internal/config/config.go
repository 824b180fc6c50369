// Package config は環境変数からサーバー設定を読み込みます
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Config はストアフロントサーバーの全設定を保持します
type Config struct {
	Port string

	APIBaseURL   string // 検索・詳細・認証・カートのサービス
	ChatBaseURL  string
	StoreBaseURL string

	HTTPTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	CartPollInterval     time.Duration
	WorkspaceIdleTimeout time.Duration

	SessionSecret  string
	RedisURL       string // 空ならセッションとイベントはメモリ上に置く
	AllowedOrigins []string
	SecureCookie   bool
	LogLevel       slog.Level
}

// Load は.envがあれば読み込み、その後に環境変数を読みます
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		APIBaseURL:           getEnv("KLURET_API_BASE_URL", "http://localhost:5000"),
		ChatBaseURL:          getEnv("KLURET_CHAT_BASE_URL", "http://localhost:5001"),
		StoreBaseURL:         getEnv("KLURET_STORE_BASE_URL", "http://localhost:5002"),
		HTTPTimeout:          getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
		RetryAttempts:        getEnvInt("RETRY_ATTEMPTS", 3),
		RetryDelay:           getEnvDuration("RETRY_DELAY", time.Second),
		CartPollInterval:     getEnvDuration("CART_POLL_INTERVAL", time.Second),
		WorkspaceIdleTimeout: getEnvDuration("WORKSPACE_IDLE_TIMEOUT", 30*time.Minute),
		SessionSecret:        os.Getenv("SESSION_SECRET"),
		RedisURL:             os.Getenv("REDIS_URL"),
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		SecureCookie:         getEnvBool("COOKIE_SECURE", false),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, errors.Wrap(err, "LOG_LEVEL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate はサーバーが動作できない設定を拒否します
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	for name, d := range map[string]time.Duration{
		"HTTP_TIMEOUT":           c.HTTPTimeout,
		"CART_POLL_INTERVAL":     c.CartPollInterval,
		"WORKSPACE_IDLE_TIMEOUT": c.WorkspaceIdleTimeout,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.RetryAttempts < 1 {
		return errors.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	}
	if c.RetryDelay < 0 {
		return errors.Errorf("RETRY_DELAY must not be negative, got %s", c.RetryDelay)
	}
	return nil
}

// Addr は待ち受けアドレスを返します
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvDuration はGoの期間表記（"1500ms"）か秒数（"2"）を受け付けます
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
