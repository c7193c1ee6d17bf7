// Package main provides a CLI tool to encrypt plaintext OAuth tokens in an
// existing settings file.
//
// Settings files written before a TOKEN_ENC_KEY was configured hold the Twitch
// access and refresh tokens in the clear. This tool rewrites such a file with
// both tokens AES-256-GCM encrypted; values that are already encrypted are
// left untouched.
//
// Usage:
//   encrypt-settings [--dry-run] [--file PATH]
//
// Flags:
//   --dry-run: Report what would change without rewriting the file
//   --file:    Settings file path (default: SETTINGS_PATH env or ".env")
//
// Environment Variables:
//   TOKEN_ENC_KEY: Base64-encoded 32-byte encryption key (required)
//
// Example:
//   export TOKEN_ENC_KEY="$(openssl rand -base64 32)"
//   ./encrypt-settings --dry-run
//   ./encrypt-settings
package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/onnwee/prediction-studio/backend/config"
	"github.com/onnwee/prediction-studio/backend/crypto"
	"github.com/onnwee/prediction-studio/backend/settings"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Report what would change without rewriting the file")
	file := flag.String("file", "", "Settings file path (default: SETTINGS_PATH env or \".env\")")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	path := *file
	if path == "" {
		path = os.Getenv("SETTINGS_PATH")
	}
	if path == "" {
		path = config.DefaultSettingsPath
	}

	key := os.Getenv("TOKEN_ENC_KEY")
	if key == "" {
		slog.Error("TOKEN_ENC_KEY environment variable is required")
		os.Exit(1)
	}
	enc, err := crypto.NewAESEncryptor(key)
	if err != nil {
		slog.Error("failed to initialize encryptor", slog.Any("error", err))
		os.Exit(1)
	}

	if err := encryptFile(path, enc, *dryRun); err != nil {
		slog.Error("encryption failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// encryptFile rewrites the settings file at path with its token values
// encrypted. The inspection pass reads the raw dotenv so already-encrypted
// values can be distinguished from plaintext ones.
func encryptFile(path string, enc crypto.Encryptor, dryRun bool) error {
	env, err := godotenv.Read(path)
	if err != nil {
		return err
	}

	tokenKeys := []string{settings.KeyAccessToken, settings.KeyRefreshToken}
	plaintext := 0
	for _, k := range tokenKeys {
		v := strings.TrimSpace(env[k])
		logger := slog.With(slog.String("key", k))
		switch {
		case v == "":
			logger.Info("token not set, skipping")
		case strings.HasPrefix(v, "enc:"):
			logger.Info("token already encrypted, skipping")
		default:
			logger.Info("token stored in plaintext", slog.Bool("dry_run", dryRun))
			plaintext++
		}
	}

	if plaintext == 0 {
		slog.Info("nothing to encrypt", slog.String("file", path))
		return nil
	}
	if dryRun {
		slog.Info("dry-run: file not modified",
			slog.String("file", path),
			slog.Int("plaintext_tokens", plaintext))
		return nil
	}

	// Loading through the store decodes whatever is there (plain or
	// encrypted) and saving writes everything back encrypted, preserving
	// unrecognized keys.
	store := settings.NewStore(path, enc)
	if _, err := store.Load(); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}

	slog.Info("settings file encrypted",
		slog.String("file", path),
		slog.Int("tokens_encrypted", plaintext))
	return nil
}
