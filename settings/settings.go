// Package settings owns the persisted user settings for the prediction tool:
// Twitch application credentials, the broadcaster channel, and the OAuth user
// tokens. Settings live in a dotenv-style key=value file (comments allowed)
// that the desktop front-end also edits, so every mutation is written through
// to disk immediately.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/onnwee/prediction-studio/backend/crypto"
)

// Keys used in the settings file.
const (
	KeyClientID      = "TWITCH_CLIENT_ID"
	KeyClientSecret  = "TWITCH_CLIENT_SECRET"
	KeyChannelName   = "TWITCH_CHANNEL_NAME"
	KeyRedirectURI   = "OAUTH_REDIRECT_URI"
	KeyAccessToken   = "TWITCH_ACCESS_TOKEN"
	KeyRefreshToken  = "TWITCH_REFRESH_TOKEN"
	KeyBroadcasterID = "TWITCH_BROADCASTER_ID"
	KeyOpenAIAPIKey  = "OPENAI_API_KEY"
)

// encPrefix marks token values that are stored AES-GCM encrypted.
const encPrefix = "enc:"

// Settings is the current session configuration. Zero values mean "not set".
type Settings struct {
	ClientID      string
	ClientSecret  string
	ChannelName   string
	RedirectURI   string
	AccessToken   string
	RefreshToken  string
	BroadcasterID string
	OpenAIAPIKey  string
}

// CredentialsReady reports whether the static configuration needed to even
// attempt a session is present.
func (s Settings) CredentialsReady() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.ChannelName != ""
}

// SessionReady reports whether authenticated Helix calls may be attempted.
func (s Settings) SessionReady() bool {
	return s.CredentialsReady() && s.AccessToken != "" && s.RefreshToken != "" && s.BroadcasterID != ""
}

// Store is the file-backed settings store. All mutations go through Update,
// which persists before returning (write-through, no buffering).
type Store struct {
	mu   sync.Mutex
	path string
	enc  crypto.Encryptor // nil: tokens stored in the clear

	cur   Settings
	extra map[string]string // unrecognized keys, preserved across saves
}

// NewStore creates a store for the given file path. enc may be nil; when set,
// token values are encrypted at rest and prefixed with "enc:".
func NewStore(path string, enc crypto.Encryptor) *Store {
	return &Store{path: path, enc: enc, extra: map[string]string{}}
}

// Path returns the backing file path.
func (st *Store) Path() string { return st.path }

// Load reads the settings file into the store. A missing file is not an
// error: it yields zero settings, the same as a fresh install.
func (st *Store) Load() (Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	env, err := godotenv.Read(st.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			st.cur = Settings{}
			st.extra = map[string]string{}
			return st.cur, nil
		}
		return Settings{}, fmt.Errorf("read settings file %s: %w", st.path, err)
	}

	s := Settings{
		ClientID:      strings.TrimSpace(env[KeyClientID]),
		ClientSecret:  strings.TrimSpace(env[KeyClientSecret]),
		ChannelName:   strings.TrimSpace(env[KeyChannelName]),
		RedirectURI:   strings.TrimSpace(env[KeyRedirectURI]),
		BroadcasterID: strings.TrimSpace(env[KeyBroadcasterID]),
		OpenAIAPIKey:  strings.TrimSpace(env[KeyOpenAIAPIKey]),
	}
	if s.AccessToken, err = st.decodeToken(env[KeyAccessToken]); err != nil {
		return Settings{}, fmt.Errorf("decode %s: %w", KeyAccessToken, err)
	}
	if s.RefreshToken, err = st.decodeToken(env[KeyRefreshToken]); err != nil {
		return Settings{}, fmt.Errorf("decode %s: %w", KeyRefreshToken, err)
	}

	known := map[string]bool{
		KeyClientID: true, KeyClientSecret: true, KeyChannelName: true,
		KeyRedirectURI: true, KeyAccessToken: true, KeyRefreshToken: true,
		KeyBroadcasterID: true, KeyOpenAIAPIKey: true,
	}
	st.extra = map[string]string{}
	for k, v := range env {
		if !known[k] {
			st.extra[k] = v
		}
	}

	st.cur = s
	return s, nil
}

// Current returns a copy of the in-memory settings.
func (st *Store) Current() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cur
}

// Update applies mutate to the settings and persists the result before
// returning. On a save failure the in-memory settings keep the mutation but
// the error is surfaced so callers can report it.
func (st *Store) Update(mutate func(*Settings)) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	mutate(&st.cur)
	return st.save()
}

// Save persists the current in-memory settings.
func (st *Store) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.save()
}

func (st *Store) save() error {
	env := map[string]string{}
	for k, v := range st.extra {
		env[k] = v
	}
	env[KeyClientID] = st.cur.ClientID
	env[KeyClientSecret] = st.cur.ClientSecret
	env[KeyChannelName] = st.cur.ChannelName
	env[KeyRedirectURI] = st.cur.RedirectURI
	env[KeyBroadcasterID] = st.cur.BroadcasterID
	env[KeyOpenAIAPIKey] = st.cur.OpenAIAPIKey

	var err error
	if env[KeyAccessToken], err = st.encodeToken(st.cur.AccessToken); err != nil {
		return fmt.Errorf("encode %s: %w", KeyAccessToken, err)
	}
	if env[KeyRefreshToken], err = st.encodeToken(st.cur.RefreshToken); err != nil {
		return fmt.Errorf("encode %s: %w", KeyRefreshToken, err)
	}

	if err := godotenv.Write(env, st.path); err != nil {
		return fmt.Errorf("write settings file %s: %w", st.path, err)
	}
	return nil
}

func (st *Store) encodeToken(v string) (string, error) {
	if v == "" || st.enc == nil {
		return v, nil
	}
	ct, err := crypto.EncryptString(st.enc, v)
	if err != nil {
		return "", err
	}
	return encPrefix + ct, nil
}

func (st *Store) decodeToken(v string) (string, error) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, encPrefix) {
		// Plain value, also the migration path for files written before
		// encryption was enabled.
		return v, nil
	}
	if st.enc == nil {
		return "", errors.New("value is encrypted but no TOKEN_ENC_KEY is configured")
	}
	return crypto.DecryptString(st.enc, strings.TrimPrefix(v, encPrefix))
}
