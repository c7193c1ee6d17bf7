package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate random key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewAESEncryptor(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		errorMsg  string
		wantError bool
	}{
		{
			name:      "empty key",
			key:       "",
			wantError: true,
			errorMsg:  "encryption key is empty",
		},
		{
			name:      "invalid base64",
			key:       "not-valid-base64!@#$",
			wantError: true,
			errorMsg:  "base64 decode failed",
		},
		{
			name:      "key too short",
			key:       base64.StdEncoding.EncodeToString(make([]byte, 16)),
			wantError: true,
			errorMsg:  "must be 32 bytes",
		},
		{
			name:      "key too long",
			key:       base64.StdEncoding.EncodeToString(make([]byte, 64)),
			wantError: true,
			errorMsg:  "must be 32 bytes",
		},
		{
			name:      "valid 32-byte key",
			key:       base64.StdEncoding.EncodeToString(make([]byte, 32)),
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewAESEncryptor(tt.key)
			if tt.wantError {
				if err == nil {
					t.Errorf("NewAESEncryptor() expected error but got nil")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("NewAESEncryptor() error = %v, want error containing %q", err, tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("NewAESEncryptor() unexpected error = %v", err)
				}
				if enc == nil {
					t.Errorf("NewAESEncryptor() returned nil encryptor")
				}
			}
		})
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "short string", plaintext: "hello"},
		{name: "twitch access token", plaintext: "kpvy3gq1vb0adf8sj6qnv9mvvtqk3m"},
		{name: "long string", plaintext: strings.Repeat("a", 1000)},
		{name: "special characters", plaintext: "!@#$%^&*()_+-={}[]|\\:;\"'<>,.?/~`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt([]byte(tt.plaintext))
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if bytes.Equal(ciphertext, []byte(tt.plaintext)) {
				t.Errorf("Encrypt() returned plaintext unchanged")
			}

			decrypted, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if string(decrypted) != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", string(decrypted), tt.plaintext)
			}
		})
	}
}

// Same plaintext must encrypt to different ciphertexts (random nonce).
func TestEncrypt_NonDeterministic(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}

	c1, err := enc.Encrypt([]byte("refresh-token-value"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	c2, err := enc.Encrypt([]byte("refresh-token-value"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(c1, c2) {
		t.Errorf("two encryptions of the same plaintext produced identical ciphertexts")
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}

	ciphertext, err := enc.Encrypt([]byte("access-token"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// Flip a bit in the ciphertext body (past the nonce)
	ciphertext[len(ciphertext)-1] ^= 0x01

	if _, err := enc.Decrypt(ciphertext); err == nil {
		t.Errorf("Decrypt() of tampered ciphertext succeeded, want error")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc1, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}
	enc2, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}

	ciphertext, err := enc1.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := enc2.Decrypt(ciphertext); err == nil {
		t.Errorf("Decrypt() with wrong key succeeded, want error")
	}
}

func TestDecrypt_InvalidCiphertext(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}

	tests := []struct {
		name       string
		ciphertext []byte
	}{
		{name: "empty", ciphertext: nil},
		{name: "too short for nonce", ciphertext: []byte{0x01, 0x02, 0x03}},
		{name: "nonce only", ciphertext: make([]byte, 12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Decrypt(tt.ciphertext); err == nil {
				t.Errorf("Decrypt(%q) succeeded, want error", tt.name)
			}
		})
	}
}

func TestEncryptString_RoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}

	out, err := EncryptString(enc, "oauth-refresh-token")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if out == "" || out == "oauth-refresh-token" {
		t.Fatalf("EncryptString() = %q, want base64 ciphertext", out)
	}
	if _, err := base64.StdEncoding.DecodeString(out); err != nil {
		t.Fatalf("EncryptString() output is not valid base64: %v", err)
	}

	back, err := DecryptString(enc, out)
	if err != nil {
		t.Fatalf("DecryptString() error = %v", err)
	}
	if back != "oauth-refresh-token" {
		t.Errorf("DecryptString() = %q, want %q", back, "oauth-refresh-token")
	}
}

// Empty values pass through both helpers so unset tokens stay unset.
func TestStringHelpers_EmptyPassthrough(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}

	if out, err := EncryptString(enc, ""); err != nil || out != "" {
		t.Errorf("EncryptString(empty) = (%q, %v), want (\"\", nil)", out, err)
	}
	if out, err := DecryptString(enc, ""); err != nil || out != "" {
		t.Errorf("DecryptString(empty) = (%q, %v), want (\"\", nil)", out, err)
	}
}
