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

// ストアドライバーの識別子
const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreRedis     = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	OAuthSuccessURL    string
	OAuthFailureURL    string

	// Session
	SessionSecret string
	SessionMaxAge int
	SessionStore  string
	TokenTTL      time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Document store
	DocstoreDriver               string
	DocstoreDatabaseID           string
	FirebaseProjectID            string
	GoogleApplicationCredentials string
	ProfileCollectionID          string
	UserModelsCollectionID       string
	PublicModelsCollectionID     string

	// Synthesis
	SynthesisURL       string
	SynthesisTimeout   time.Duration
	AudioHistoryMax    int
	WorkspaceIdleTTL   time.Duration
	RateLimitSynthesis int

	// Checkout
	CheckoutURL     string
	CheckoutTimeout time.Duration
	StripeSecretKey string

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	// ドライバー選択に依存する必須項目
	cfg.DocstoreDriver = getEnvString("DOCSTORE_DRIVER", StorePostgres)
	cfg.SessionStore = getEnvString("SESSION_STORE", StorePostgres)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.FirebaseProjectID = os.Getenv("FIREBASE_PROJECT_ID")

	if cfg.DatabaseURL == "" && (cfg.DocstoreDriver == StorePostgres || cfg.SessionStore == StorePostgres) {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.RedisAddr == "" && cfg.SessionStore == StoreRedis {
		missing = append(missing, "REDIS_ADDR")
	}
	if cfg.FirebaseProjectID == "" && cfg.DocstoreDriver == StoreFirestore {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	switch cfg.DocstoreDriver {
	case StorePostgres, StoreFirestore:
	default:
		return nil, fmt.Errorf("unsupported DOCSTORE_DRIVER: %q", cfg.DocstoreDriver)
	}
	switch cfg.SessionStore {
	case StorePostgres, StoreRedis:
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE: %q", cfg.SessionStore)
	}

	// Optional fields with defaults
	cfg.OAuthSuccessURL = getEnvString("OAUTH_SUCCESS_URL", cfg.BaseURL+"/")
	cfg.OAuthFailureURL = getEnvString("OAUTH_FAILURE_URL", cfg.BaseURL+"/login")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 15*time.Minute)
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.DocstoreDatabaseID = getEnvString("DOCSTORE_DATABASE_ID", "tts")
	cfg.GoogleApplicationCredentials = getEnvString("GOOGLE_APPLICATION_CREDENTIALS", "")
	cfg.ProfileCollectionID = getEnvString("PROFILE_COLLECTION_ID", "profiles")
	cfg.UserModelsCollectionID = getEnvString("USER_MODELS_COLLECTION_ID", "user_models")
	cfg.PublicModelsCollectionID = getEnvString("PUBLIC_MODELS_COLLECTION_ID", "public_models")
	cfg.SynthesisURL = getEnvString("SYNTHESIS_URL", "http://localhost:8000/generate-tts/")
	cfg.SynthesisTimeout = getEnvDuration("SYNTHESIS_TIMEOUT", 2*time.Minute)
	cfg.AudioHistoryMax = getEnvInt("AUDIO_HISTORY_MAX", 0)
	cfg.WorkspaceIdleTTL = getEnvDuration("WORKSPACE_IDLE_TTL", 2*time.Hour)
	cfg.RateLimitSynthesis = getEnvInt("RATE_LIMIT_SYNTHESIS", 20)
	cfg.CheckoutURL = getEnvString("CHECKOUT_URL", cfg.BaseURL+"/api/create-checkout-session")
	cfg.CheckoutTimeout = getEnvDuration("CHECKOUT_TIMEOUT", 15*time.Second)
	cfg.StripeSecretKey = getEnvString("STRIPE_SECRET_KEY", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.BaseURL)

	return cfg, nil
}

// LoadDotEnv は指定された.envファイルを環境変数に読み込む。
// 既に設定済みの環境変数は上書きしない。ファイルが存在しない場合は何もしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
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

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
