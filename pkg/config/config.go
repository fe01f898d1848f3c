package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shouni/headshot-studio/pkg/generator"
	"github.com/shouni/headshot-studio/pkg/session"
)

const (
	DefaultPort              = "8080"
	DefaultSessionTTL        = 30 * time.Minute
	DefaultMaxSessions       = 1000
	DefaultMaxUploadBytes    = 20 << 20
	DefaultUploadJPEGQuality = 85
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 120 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
)

// Config は環境変数から読み込むアプリケーション設定です。
type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	GeminiSeed   *int64

	Port      string
	LogLevel  slog.Level
	LogFormat string

	LoadingInterval time.Duration
	SessionTTL      time.Duration
	MaxSessions     int

	MaxUploadBytes    int64
	UploadCompress    bool
	UploadJPEGQuality int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load は .env（存在すれば）と環境変数から設定を読み込みます。
// APIキーが未設定でもエラーにはしません。生成時に固定メッセージで通知されます。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".env の読み込みに失敗しました: %w", err)
	}

	seed, err := getEnvInt64("GEMINI_SEED")
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		GeminiAPIKey:      getEnvOrDefault("GEMINI_API_KEY", os.Getenv("API_KEY")),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", generator.DefaultModel),
		GeminiSeed:        seed,
		Port:              getEnvOrDefault("PORT", DefaultPort),
		LogLevel:          level,
		LogFormat:         strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
		LoadingInterval:   getEnvDurationOrDefault("LOADING_INTERVAL", session.DefaultLoadingInterval),
		SessionTTL:        getEnvDurationOrDefault("SESSION_TTL", DefaultSessionTTL),
		MaxSessions:       getEnvIntOrDefault("MAX_SESSIONS", DefaultMaxSessions),
		MaxUploadBytes:    int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		UploadCompress:    getEnvBoolOrDefault("UPLOAD_COMPRESS", false),
		UploadJPEGQuality: getEnvIntOrDefault("UPLOAD_JPEG_QUALITY", DefaultUploadJPEGQuality),
		HTTPReadTimeout:   getEnvDurationOrDefault("HTTP_READ_TIMEOUT", DefaultReadTimeout),
		HTTPWriteTimeout:  getEnvDurationOrDefault("HTTP_WRITE_TIMEOUT", DefaultWriteTimeout),
		HTTPIdleTimeout:   getEnvDurationOrDefault("HTTP_IDLE_TIMEOUT", DefaultIdleTimeout),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は数値設定の妥当性を検証します。
func (c *Config) Validate() error {
	var errs []error
	if c.LoadingInterval <= 0 {
		errs = append(errs, fmt.Errorf("LOADING_INTERVAL must be positive: %s", c.LoadingInterval))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must not be negative: %s", c.SessionTTL))
	}
	if c.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("MAX_SESSIONS must not be negative: %d", c.MaxSessions))
	}
	if c.GeminiSeed != nil && (*c.GeminiSeed < math.MinInt32 || *c.GeminiSeed > math.MaxInt32) {
		errs = append(errs, fmt.Errorf("GEMINI_SEED must fit in int32: %d", *c.GeminiSeed))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive: %d", c.MaxUploadBytes))
	}
	if c.UploadJPEGQuality < 1 || c.UploadJPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("UPLOAD_JPEG_QUALITY must be between 1 and 100: %d", c.UploadJPEGQuality))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json: %q", c.LogFormat))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	return errors.Join(errs...)
}

// Addr は HTTP サーバーの待ち受けアドレスを返します。
func (c *Config) Addr() string {
	return ":" + c.Port
}

// GeneratorConfig は生成アダプター用の設定を返します。
func (c *Config) GeneratorConfig() generator.Config {
	return generator.Config{
		APIKey: c.GeminiAPIKey,
		Model:  c.GeminiModel,
		Seed:   c.GeminiSeed,
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL が不正です (%q): %w", s, err)
	}
	return level, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		slog.Warn("数値として解釈できないためデフォルト値を使用します", "key", key, "value", v)
	}
	return fallback
}

func getEnvInt64(key string) (*int64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s が不正です: %w", key, err)
	}
	return &i, nil
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("時間として解釈できないためデフォルト値を使用します", "key", key, "value", v)
	}
	return fallback
}

func getEnvBoolOrDefault(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		slog.Warn("真偽値として解釈できないためデフォルト値を使用します", "key", key, "value", v)
	}
	return fallback
}
