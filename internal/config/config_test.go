package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		chdir(t, t.TempDir())

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Database.Path != "data/mealmatch.db" {
			t.Errorf("Expected default database path, got '%s'", cfg.Database.Path)
		}
		if cfg.HTTP.Addr != ":8080" || cfg.HTTP.RateWindow != time.Minute {
			t.Errorf("Unexpected HTTP defaults: %+v", cfg.HTTP)
		}
		if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
			t.Errorf("Unexpected log defaults: %+v", cfg.Log)
		}
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("MEALMATCH_DATABASE_PATH", "/tmp/mm.db")
		t.Setenv("MEALMATCH_LOG_LEVEL", "debug")
		t.Setenv("MEALMATCH_AUTH_JWT_SECRET", "0123456789abcdef0123")
		t.Setenv("MEALMATCH_AUTH_TOKEN_TTL", "2h")
		t.Setenv("MEALMATCH_TELEGRAM_BOT_TOKEN", "bot_token")
		t.Setenv("MEALMATCH_TELEGRAM_ALLOWED_USER_IDS", "11,22")
		t.Setenv("MEALMATCH_GHOST_CONTENT_KEY", "ghost_key")
		t.Setenv("MEALMATCH_UNKNOWN_THING", "ignored")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Database.Path != "/tmp/mm.db" {
			t.Errorf("Expected database path '/tmp/mm.db', got '%s'", cfg.Database.Path)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("Expected log level 'debug', got '%s'", cfg.Log.Level)
		}
		if cfg.Auth.TokenTTL != 2*time.Hour {
			t.Errorf("Expected token TTL 2h, got %v", cfg.Auth.TokenTTL)
		}
		if cfg.Telegram.BotToken != "bot_token" {
			t.Errorf("Expected bot token, got '%s'", cfg.Telegram.BotToken)
		}
		if len(cfg.Telegram.AllowedUserIDs) != 2 || cfg.Telegram.AllowedUserIDs[1] != 22 {
			t.Errorf("Expected allowed users [11 22], got %v", cfg.Telegram.AllowedUserIDs)
		}
		if cfg.Ghost.ContentKey != "ghost_key" {
			t.Errorf("Expected ghost key, got '%s'", cfg.Ghost.ContentKey)
		}
	})

	t.Run("FileThenEnvironment", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mealmatch.yaml")
		yaml := "database:\n  path: /srv/file.db\nhttp:\n  addr: \":9000\"\nghost:\n  url: https://blog.example.com\n"
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv(PathEnvVar, path)
		t.Setenv("MEALMATCH_HTTP_ADDR", ":9100")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Database.Path != "/srv/file.db" {
			t.Errorf("Expected path from file, got '%s'", cfg.Database.Path)
		}
		if cfg.HTTP.Addr != ":9100" {
			t.Errorf("Expected environment to win over file, got '%s'", cfg.HTTP.Addr)
		}
		if cfg.Ghost.URL != "https://blog.example.com" {
			t.Errorf("Expected ghost URL from file, got '%s'", cfg.Ghost.URL)
		}
	})

	t.Run("InvalidValues", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("MEALMATCH_LOG_FORMAT", "xml")

		_, err := NewFromEnv()
		if err == nil || !strings.Contains(err.Error(), "validation") {
			t.Fatalf("Expected a validation error, got %v", err)
		}
	})

	t.Run("ShortSecret", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("MEALMATCH_AUTH_JWT_SECRET", "short")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a short JWT secret")
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Setenv(PathEnvVar, filepath.Join(t.TempDir(), "nope.yaml"))
		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a missing config file")
		}
	})
}

func TestRequirements(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.RequireJWT(); err == nil {
		t.Error("Expected RequireJWT to fail without a secret")
	}
	if err := cfg.RequireTelegram(); err == nil {
		t.Error("Expected RequireTelegram to fail without a token")
	}
	if err := cfg.RequireGhost(); err == nil {
		t.Error("Expected RequireGhost to fail without a URL")
	}

	cfg.Auth.JWTSecret = "0123456789abcdef"
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.WebhookURL = "https://bot.example.com/hook"
	cfg.Ghost.URL = "https://blog.example.com"
	cfg.Ghost.ContentKey = "key"

	for name, err := range map[string]error{
		"jwt":      cfg.RequireJWT(),
		"telegram": cfg.RequireTelegram(),
		"ghost":    cfg.RequireGhost(),
	} {
		if err != nil {
			t.Errorf("%s: expected no error, got %v", name, err)
		}
	}
}

func TestIsAllowedTelegramUser(t *testing.T) {
	cfg := defaultConfig()
	if !cfg.IsAllowedTelegramUser(42) {
		t.Error("Expected everyone to be allowed with an empty list")
	}

	cfg.Telegram.AllowedUserIDs = []int64{1, 2}
	cfg.Telegram.AdminID = 99
	if !cfg.IsAllowedTelegramUser(2) || !cfg.IsAllowedTelegramUser(99) {
		t.Error("Expected listed users and the admin to be allowed")
	}
	if cfg.IsAllowedTelegramUser(3) {
		t.Error("Expected unlisted user to be rejected")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"MEALMATCH_DATABASE_PATH":             "database.path",
		"MEALMATCH_TELEGRAM_ALLOWED_USER_IDS": "telegram.allowed_user_ids",
		"MEALMATCH_CONFIG":                    "",
		"MEALMATCH_NOPE_VALUE":                "",
	}
	for in, want := range tests {
		if got, _ := envTransformFunc(in, "x"); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}

	_, value := envTransformFunc("MEALMATCH_TELEGRAM_ALLOWED_USER_IDS", " 11, 22,,33 ")
	if !reflect.DeepEqual(value, []string{"11", "22", "33"}) {
		t.Errorf("Expected allow-list split on commas, got %#v", value)
	}
	if _, value := envTransformFunc("MEALMATCH_LOG_LEVEL", "a,b"); value != "a,b" {
		t.Errorf("Expected scalar values untouched, got %#v", value)
	}
}

func TestNewFromEnv_AllowedUserIDs(t *testing.T) {
	tests := map[string][]int64{
		"11":         {11},
		"11,22":      {11, 22},
		" 7 , 8 ,9 ": {7, 8, 9},
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv("MEALMATCH_TELEGRAM_ALLOWED_USER_IDS", in)

			cfg, err := NewFromEnv()
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !reflect.DeepEqual(cfg.Telegram.AllowedUserIDs, want) {
				t.Errorf("Expected allowed users %v, got %v", want, cfg.Telegram.AllowedUserIDs)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores the previous one when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
