package qstash

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signBody(t *testing.T, key string, body []byte, subject string, now time.Time) string {
	t.Helper()

	sum := sha256.Sum256(body)
	c := claims{
		Body: base64.URLEncoding.EncodeToString(sum[:]),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func newTestClient(t *testing.T, now time.Time) *Client {
	t.Helper()
	c, err := NewClient(Config{CurrentSigningKey: "current", NextSigningKey: "next"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.now = func() time.Time { return now }
	return c
}

func TestVerifyAcceptsCurrentAndNextKeys(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	c := newTestClient(t, now)
	body := []byte(`{"job":"expiry"}`)
	const dest = "https://kcart.example/internal/expiry-sweep"

	for _, key := range []string{"current", "next"} {
		sig := signBody(t, key, body, dest, now)
		if err := c.Verify(sig, body, dest); err != nil {
			t.Fatalf("Verify(key=%s) error = %v", key, err)
		}
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	c := newTestClient(t, now)
	sig := signBody(t, "current", []byte(`{"job":"expiry"}`), "", now)

	err := c.Verify(sig, []byte(`{"job":"other"}`), "")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsUnknownKeyAndMissingHeader(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	c := newTestClient(t, now)
	body := []byte("{}")

	if err := c.Verify("", body, ""); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
	sig := signBody(t, "stranger", body, "", now)
	if err := c.Verify(sig, body, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
