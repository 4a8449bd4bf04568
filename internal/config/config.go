package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// WorkOS
	WorkOSAPIKey         string
	WorkOSClientID       string
	WorkOSCookiePassword string
	WorkOSAPIURL         string // テスト用オーバーライド。空の場合はSDKデフォルト

	// Rate Limit
	RateLimitGeneral int
	RateLimitPortal  int

	// Server
	ServerPort string
	BaseURL    string

	// Client
	ClientOrigin string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.WorkOSAPIKey = os.Getenv("WORKOS_API_KEY")
	if cfg.WorkOSAPIKey == "" {
		missing = append(missing, "WORKOS_API_KEY")
	}

	cfg.WorkOSClientID = os.Getenv("WORKOS_CLIENT_ID")
	if cfg.WorkOSClientID == "" {
		missing = append(missing, "WORKOS_CLIENT_ID")
	}

	cfg.WorkOSCookiePassword = os.Getenv("WORKOS_COOKIE_PASSWORD")
	if cfg.WorkOSCookiePassword == "" {
		missing = append(missing, "WORKOS_COOKIE_PASSWORD")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.WorkOSAPIURL = getEnvString("WORKOS_API_URL", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitPortal = getEnvInt("RATE_LIMIT_PORTAL", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.ClientOrigin = getEnvString("CLIENT_ORIGIN", "http://localhost:5173")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

// RedirectURL はOAuthコールバックのリダイレクトURIを返す。
// プロバイダー側に登録するURLと一致する必要がある。
func (c *Config) RedirectURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/callback"
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
