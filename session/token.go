package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// Tokens are an opaque random value plus an HMAC-SHA256 tag under the app
// secret, joined with a dot. The redis record stays authoritative; the
// signature only rejects forged cookies before a redis round-trip.

func newRawToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func sign(secret []byte, raw string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(raw))
	return raw + "." + base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// verify checks the signature and returns the raw token value.
func verify(secret []byte, token string) (string, bool) {
	raw, tag, ok := strings.Cut(token, ".")
	if !ok || raw == "" {
		return "", false
	}
	want := hmac.New(sha256.New, secret)
	want.Write([]byte(raw))
	got, err := base64.URLEncoding.DecodeString(tag)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(got, want.Sum(nil)) {
		return "", false
	}
	return raw, true
}
