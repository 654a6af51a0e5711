// Package config loads application settings in three layers: built-in
// defaults, an optional YAML file, then MEALMATCH_* environment variables.
//
//	MEALMATCH_DATABASE_PATH=/data/mealmatch.db
//	MEALMATCH_AUTH_JWT_SECRET=...
//	MEALMATCH_TELEGRAM_ALLOWED_USER_IDS=1234,5678
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix of every environment variable read.
	EnvPrefix = "MEALMATCH_"
	// PathEnvVar names the YAML file to load.
	PathEnvVar = EnvPrefix + "CONFIG"
	// DefaultPath is loaded when PathEnvVar is unset and the file exists.
	DefaultPath = "config.yaml"
)

// Config holds the configuration for the application.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	HTTP     HTTPConfig     `koanf:"http"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	Telegram TelegramConfig `koanf:"telegram"`
	Ghost    GhostConfig    `koanf:"ghost"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"`
	RateWindow      time.Duration `koanf:"rate_window" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret" validate:"omitempty,min=16"`
	TokenTTL  time.Duration `koanf:"token_ttl" validate:"gt=0"`
	Issuer    string        `koanf:"issuer" validate:"required"`
}

type TelegramConfig struct {
	BotToken       string  `koanf:"bot_token"`
	WebhookURL     string  `koanf:"webhook_url" validate:"omitempty,url"`
	ListenAddr     string  `koanf:"listen_addr" validate:"required"`
	AllowedUserIDs []int64 `koanf:"allowed_user_ids"`
	AdminID        int64   `koanf:"admin_id"`
}

type GhostConfig struct {
	URL        string `koanf:"url" validate:"omitempty,url"`
	ContentKey string `koanf:"content_key"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "data/mealmatch.db"},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			RateLimit:       120,
			RateWindow:      time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Auth: AuthConfig{
			TokenTTL: 30 * 24 * time.Hour,
			Issuer:   "mealmatch",
		},
		Telegram: TelegramConfig{ListenAddr: ":8081"},
	}
}

// NewFromEnv loads the configuration from the file named by MEALMATCH_CONFIG
// (or config.yaml when present) and the environment.
func NewFromEnv() (*Config, error) {
	path := os.Getenv(PathEnvVar)
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	return Load(path)
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var sections = map[string]bool{
	"database": true, "http": true, "log": true,
	"auth": true, "telegram": true, "ghost": true,
}

// listKeys hold comma-separated values when set through the environment.
var listKeys = map[string]bool{
	"telegram.allowed_user_ids": true,
}

// envTransformFunc maps MEALMATCH_TELEGRAM_BOT_TOKEN to telegram.bot_token.
// Variables outside a known section are ignored.
func envTransformFunc(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" || !sections[section] {
		return "", nil
	}
	key = section + "." + rest

	if listKeys[key] {
		var items []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				items = append(items, v)
			}
		}
		return key, items
	}
	return key, value
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// RequireJWT reports an error when tokens cannot be issued or verified.
func (c *Config) RequireJWT() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("MEALMATCH_AUTH_JWT_SECRET environment variable not set")
	}
	return nil
}

// RequireTelegram reports an error when the bot cannot start.
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return errors.New("MEALMATCH_TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.Telegram.WebhookURL == "" {
		return errors.New("MEALMATCH_TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

// RequireGhost reports an error when recipe ingestion is not configured.
func (c *Config) RequireGhost() error {
	if c.Ghost.URL == "" {
		return errors.New("MEALMATCH_GHOST_URL environment variable not set")
	}
	if c.Ghost.ContentKey == "" {
		return errors.New("MEALMATCH_GHOST_CONTENT_KEY environment variable not set")
	}
	return nil
}

// IsAllowedTelegramUser reports whether the bot may answer id. An empty
// allow-list admits everyone.
func (c *Config) IsAllowedTelegramUser(id int64) bool {
	if len(c.Telegram.AllowedUserIDs) == 0 || id == c.Telegram.AdminID {
		return true
	}
	for _, allowed := range c.Telegram.AllowedUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}
