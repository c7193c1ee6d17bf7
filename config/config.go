// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Process-level knobs live here; the streamer's credentials and tokens live in
// the settings file and are managed by the settings package.
package config

import (
	"fmt"
	"os"
	"time"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultHTTPAddr     = ":8080"
	DefaultSettingsPath = ".env"
	DefaultDraftsPath   = "predictions.json"
	DefaultPollInterval = 60 * time.Second
)

type Config struct {
	// HTTP
	HTTPAddr string

	// Files
	SettingsPath string
	DraftsPath   string

	// Session
	PollInterval time.Duration
	TwitchScopes string

	// Chat bot (optional; announcer disabled when unset)
	TwitchBotUsername string
	TwitchBotOAuth    string

	// Suggestions
	OpenAIModel string

	// Settings encryption (optional; 64 hex chars = AES-256 key)
	TokenEncKey string
}

// Load reads environment variables and applies defaults. Missing optional
// variables disable features (chat announcements, token encryption) rather
// than failing.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	cfg.SettingsPath = os.Getenv("SETTINGS_PATH")
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = DefaultSettingsPath
	}
	cfg.DraftsPath = os.Getenv("DRAFTS_PATH")
	if cfg.DraftsPath == "" {
		cfg.DraftsPath = DefaultDraftsPath
	}

	cfg.PollInterval = DefaultPollInterval
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL %q: want a positive duration like 60s", v)
		}
		cfg.PollInterval = d
	}

	cfg.TwitchScopes = os.Getenv("TWITCH_SCOPES")
	if cfg.TwitchScopes == "" {
		// default scopes for prediction management
		cfg.TwitchScopes = "channel:read:predictions channel:manage:predictions"
	}

	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchBotOAuth = os.Getenv("TWITCH_BOT_OAUTH_TOKEN")

	cfg.OpenAIModel = os.Getenv("OPENAI_MODEL")

	cfg.TokenEncKey = os.Getenv("TOKEN_ENC_KEY")

	return cfg, nil
}

// ValidateChatReady checks required fields when the chat announcer is enabled.
func (c *Config) ValidateChatReady() error {
	if c.TwitchBotUsername == "" || c.TwitchBotOAuth == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_BOT_USERNAME, TWITCH_BOT_OAUTH_TOKEN")
	}
	return nil
}

// ChatEnabled reports whether bot credentials for chat announcements are set.
func (c *Config) ChatEnabled() bool {
	return c.ValidateChatReady() == nil
}
